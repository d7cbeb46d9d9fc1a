// Package chunker splits document text into overlapping word windows.
package chunker

import (
	"strings"

	"github.com/granskad/hamta/internal/models"
)

// Chunker splits text into overlapping word-based chunks. Word count stands
// in for token count.
type Chunker struct {
	targetSize  int
	overlapSize int
}

// New creates a chunker with the given window and overlap sizes (in words).
func New(targetSize, overlapSize int) *Chunker {
	return &Chunker{
		targetSize:  targetSize,
		overlapSize: overlapSize,
	}
}

// Chunk splits text into chunks of at most targetSize words, each window
// overlapping the previous by overlapSize words. Every input word appears in
// at least one chunk. An overlap >= targetSize degrades the step to 1 word,
// which still guarantees termination. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.targetSize - c.overlapSize
	if step < 1 {
		step = 1
	}

	total := len(words)
	chunks := make([]models.Chunk, 0, total/step+1)
	index := 0
	for i := 0; i < total; i += step {
		end := i + c.targetSize
		last := end >= total
		if end > total {
			end = total
		}
		index++
		chunks = append(chunks, models.Chunk{
			Index:   index,
			IsFirst: i == 0,
			IsLast:  last,
			Text:    strings.Join(words[i:end], " "),
		})
		if last {
			break
		}
	}
	return chunks
}
