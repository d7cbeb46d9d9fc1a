// Package rerank re-scores retrieved passages with an external per-pair
// relevance oracle.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/pkg/utils"
)

// Oracle scores the relevance of text to query on [0,1]. Implementations
// must degrade an unparsable response to 0.0 rather than failing; only
// transport-level failures surface as errors.
type Oracle interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// Reranker blends oracle scores with the original hybrid scores and re-sorts.
// Apart from the oracle calls it is a pure function of its inputs.
type Reranker struct {
	oracle    Oracle
	mixWeight float64
	logger    *zap.Logger
}

// New creates a reranker. mixWeight is the oracle's share of the blended
// score; the remainder keeps the original hybrid score.
func New(oracle Oracle, mixWeight float64, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		oracle:    oracle,
		mixWeight: mixWeight,
		logger:    logger,
	}
}

// Rerank scores each candidate with the oracle, blends
// mixWeight*oracle + (1-mixWeight)*hybrid, re-sorts descending, and truncates
// to outputTopK. The output is never wider than the input. An oracle
// transport failure propagates to the caller.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []models.Passage, outputTopK int) ([]models.Passage, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	reranked := make([]models.Passage, len(candidates))
	copy(reranked, candidates)

	for i := range reranked {
		score, err := r.oracle.Score(ctx, query, reranked[i].Text)
		if err != nil {
			return nil, fmt.Errorf("oracle score for %q: %w", reranked[i].ChunkID, err)
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		reranked[i].OracleScore = score
		reranked[i].FinalScore = r.mixWeight*score + (1-r.mixWeight)*reranked[i].Score

		r.logger.Debug("reranked candidate",
			zap.String("chunk_id", reranked[i].ChunkID),
			zap.Float64("hybrid", reranked[i].Score),
			zap.Float64("oracle", score),
			zap.Float64("final", reranked[i].FinalScore),
			zap.String("preview", utils.Truncate(reranked[i].Text, 80)),
		)
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].FinalScore > reranked[j].FinalScore })
	if outputTopK > 0 && outputTopK < len(reranked) {
		reranked = reranked[:outputTopK]
	}
	return reranked, nil
}
