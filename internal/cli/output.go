// Package cli provides output formatting for the hamta command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/granskad/hamta/internal/models"
)

// OutputFormat selects how answers are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes an answer to w in the given format. Verbose adds the
// per-passage score breakdown to text output.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat, verbose bool) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	writeAnswerText(w, answer, verbose)
	return nil
}

func writeAnswerText(w io.Writer, answer *models.Answer, verbose bool) {
	fmt.Fprintf(w, "\n%s\n", answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintf(w, "\nSources:\n")
		for _, s := range answer.Sources {
			fmt.Fprintf(w, "  - %s p.%d\n", s.DocumentName, s.PageNumber)
		}
	}
	if !verbose {
		return
	}
	fmt.Fprintf(w, "\nPassages (%s):\n", answer.Mode)
	for i, p := range answer.Passages {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s | score %.4f (lexical %.4f, embedding %.4f)\n",
			i+1, p.ChunkID, p.Score, p.LexicalScore, p.EmbeddingScore)
		if p.FinalScore > 0 {
			fmt.Fprintf(w, "    reranked %.4f (oracle %.4f)\n", p.FinalScore, p.OracleScore)
		}
		fmt.Fprintf(w, "    %s p.%d\n", p.Meta.DocumentName, p.Meta.PageNumber)
		fmt.Fprintf(w, "\n%s\n", TruncateWords(p.Text, 60))
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
