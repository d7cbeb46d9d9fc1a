// Package retriever implements hybrid (lexical + embedding) passage retrieval.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/lexical"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/vector"
	"github.com/granskad/hamta/pkg/utils"
)

// Mode selects which scoring signals contribute to the blended score.
type Mode string

const (
	ModeLexical   Mode = "lexical"
	ModeEmbedding Mode = "embedding"
	ModeHybrid    Mode = "hybrid"
)

// Options configures retrieval. Alpha weights the lexical signal and Beta the
// embedding signal; they are independent coefficients and need not sum to 1.
type Options struct {
	TopK  int
	Mode  Mode
	Alpha float64
	Beta  float64
}

// Request is a single retrieval invocation. WorkspaceID and DocumentIDs
// restrict the candidate pool; both empty means the whole index. DocumentIDs
// entries match a chunk's document name when set, falling back to its
// document ID.
type Request struct {
	Question    string
	WorkspaceID string
	DocumentIDs []string
	Verbose     bool
}

// Retriever ranks indexed chunks against a question by blending a BM25 score
// with an embedding similarity score.
//
// The lexical model is rebuilt per query over the filtered candidate pool,
// not over the whole corpus. That keeps the signal scoped to the active
// tenancy/document selection, at the cost of raw lexical scores not being
// comparable across queries.
type Retriever struct {
	index    vector.Index
	provider embedding.Provider
	opts     Options
	logger   *zap.Logger
}

// New creates a retriever over index using provider for query embeddings.
func New(index vector.Index, provider embedding.Provider, opts Options, logger *zap.Logger) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		index:    index,
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// Mode returns the configured scoring mode.
func (r *Retriever) Mode() Mode { return r.opts.Mode }

// TopK returns the configured result width.
func (r *Retriever) TopK() int { return r.opts.TopK }

// Retrieve returns up to TopK passages ranked by blended score, descending.
// An empty candidate pool yields an empty result. An embedding provider
// failure is returned to the caller; there is no fallback to lexical-only
// scoring, the caller owns degraded-mode policy.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]models.Passage, error) {
	candidates := r.filterCandidates(req)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Embed the question once; stored vectors are unit-normalized on insert,
	// so the query is normalized the same way before taking dot products.
	vecs, err := r.provider.EmbedTexts(ctx, []string{req.Question})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := make([]float32, len(vecs[0]))
	copy(queryVec, vecs[0])
	vector.NormalizeL2(queryVec)

	embScores := make([]float64, len(candidates))
	for i, c := range candidates {
		embScores[i] = vector.InnerProduct(queryVec, c.Embedding)
	}

	docTokens := make([][]string, len(candidates))
	for i, c := range candidates {
		docTokens[i] = lexical.Tokenize(c.Meta.Text)
	}
	model := lexical.NewModel(docTokens)
	lexScores := model.Scores(lexical.Tokenize(req.Question))

	lexNorm := NormalizeMinMax(lexScores)
	embNorm := NormalizeMinMax(embScores)

	combined := make([]float64, len(candidates))
	var method string
	switch r.opts.Mode {
	case ModeLexical:
		copy(combined, lexNorm)
		method = models.MethodLexical
	case ModeHybrid:
		for i := range combined {
			combined[i] = r.opts.Alpha*lexNorm[i] + r.opts.Beta*embNorm[i]
		}
		method = models.MethodHybrid
	default:
		copy(combined, embNorm)
		method = models.MethodEmbedding
	}

	if req.Verbose {
		for i, c := range candidates {
			r.logger.Debug("candidate scored",
				zap.String("chunk_id", c.ID),
				zap.Float64("lexical", lexNorm[i]),
				zap.Float64("embedding", embNorm[i]),
				zap.Float64("combined", combined[i]),
				zap.String("preview", utils.Truncate(c.Meta.Text, 80)),
			)
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return combined[order[a]] > combined[order[b]] })
	if r.opts.TopK < len(order) {
		order = order[:r.opts.TopK]
	}

	passages := make([]models.Passage, 0, len(order))
	for _, i := range order {
		c := candidates[i]
		passages = append(passages, models.Passage{
			ChunkID:        c.ID,
			Text:           c.Meta.Text,
			Score:          combined[i],
			LexicalScore:   lexNorm[i],
			EmbeddingScore: embNorm[i],
			Method:         method,
			Meta:           c.Meta,
		})
	}
	return passages, nil
}

// filterCandidates selects indexed items matching the request scope.
func (r *Retriever) filterCandidates(req Request) []vector.Item {
	var allowed map[string]bool
	if len(req.DocumentIDs) > 0 {
		allowed = make(map[string]bool, len(req.DocumentIDs))
		for _, id := range req.DocumentIDs {
			allowed[id] = true
		}
	}
	items := r.index.Items()
	candidates := items[:0:0]
	for _, item := range items {
		if req.WorkspaceID != "" && item.Meta.WorkspaceID != req.WorkspaceID {
			continue
		}
		if allowed != nil {
			did := item.Meta.DocumentName
			if did == "" {
				did = item.Meta.DocumentID
			}
			if !allowed[did] {
				continue
			}
		}
		candidates = append(candidates, item)
	}
	return candidates
}

// NormalizeMinMax rescales scores to [0,1]. When all scores are equal the
// result is all zeros if the shared value is zero (no signal) and all ones
// otherwise (uniform perfect tie). A single candidate follows the same rule.
func NormalizeMinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max-min < 1e-9 {
		if max != 0 {
			for i := range out {
				out[i] = 1.0
			}
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}
