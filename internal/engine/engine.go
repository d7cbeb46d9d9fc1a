// Package engine composes retrieval, reranking, and answer synthesis for one
// workspace, and provides the per-workspace engine registry.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/llm"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/querylog"
	"github.com/granskad/hamta/internal/rerank"
	"github.com/granskad/hamta/internal/retriever"
	"github.com/granskad/hamta/pkg/utils"
)

// Generation modes.
const (
	ModeAnswer  = "answer"
	ModeSummary = "summary"
	ModeExtract = "extract"
)

const noAnswerReply = "I cannot find the answer in the provided sources."

const answerSystemPrompt = `You answer questions strictly from the given source texts.

RULES:
1) Read the sources carefully.
2) If the answer is stated explicitly: answer briefly and clearly (1-2 sentences).
3) If the answer is not verbatim but can reasonably be inferred from the sources,
   reason cautiously and mark the interpretation (e.g. "Based on the description, ...").
4) If the answer is neither stated nor inferable, reply exactly: "` + noAnswerReply + `"
5) Never invent facts outside the sources.

End the answer with the line "Sources:" followed by a bullet list of the documents and pages used.`

const summarySystemPrompt = `Summarize the context below in 2-3 sentences, based only on its content. ` +
	`End with "Sources:" and list the documents and pages you used.`

const extractSystemPrompt = `Extract the relevant key points from the context below. ` +
	`End with "Sources:" and list the documents and pages you used.`

// AskRequest is one question against a workspace engine.
type AskRequest struct {
	Question    string
	DocumentIDs []string
	Mode        string
	Verbose     bool
	RequestID   string
}

// Engine answers questions over a single workspace's index. It is safe for
// concurrent use: retrieval reads the shared index under its read lock, and
// the engine itself holds no per-query state.
type Engine struct {
	workspaceID string
	retriever   *retriever.Retriever
	reranker    *rerank.Reranker
	rerankIn    int
	rerankOut   int
	client      llm.Client
	llmModels   llm.Models
	qlog        *querylog.Logger
	logger      *zap.Logger
}

// Options configures optional engine collaborators.
type Options struct {
	// Reranker enables the second-pass rerank when non-nil. RerankInputTopK
	// of 0 reranks all retrieved passages.
	Reranker         *rerank.Reranker
	RerankInputTopK  int
	RerankOutputTopK int

	// Client synthesizes answers. Retrieval-only engines may leave it nil.
	Client    llm.Client
	LLMModels llm.Models

	QueryLog *querylog.Logger
	Logger   *zap.Logger
}

// New creates an engine for workspaceID over the given retriever.
func New(workspaceID string, r *retriever.Retriever, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		workspaceID: workspaceID,
		retriever:   r,
		reranker:    opts.Reranker,
		rerankIn:    opts.RerankInputTopK,
		rerankOut:   opts.RerankOutputTopK,
		client:      opts.Client,
		llmModels:   opts.LLMModels,
		qlog:        opts.QueryLog,
		logger:      logger,
	}
}

// Retrieve runs hybrid retrieval scoped to this engine's workspace, followed
// by the rerank pass when enabled and more than one passage came back.
func (e *Engine) Retrieve(ctx context.Context, question string, documentIDs []string, verbose bool) ([]models.Passage, error) {
	passages, err := e.retriever.Retrieve(ctx, retriever.Request{
		Question:    question,
		WorkspaceID: e.workspaceID,
		DocumentIDs: documentIDs,
		Verbose:     verbose,
	})
	if err != nil {
		return nil, err
	}
	if e.reranker == nil || len(passages) <= 1 {
		return passages, nil
	}

	input := passages
	if e.rerankIn > 0 && e.rerankIn < len(input) {
		input = input[:e.rerankIn]
	}
	output := e.rerankOut
	if output <= 0 || output > len(input) {
		output = len(input)
	}
	return e.reranker.Rerank(ctx, question, input, output)
}

// Ask answers a question from retrieved passages. An empty candidate pool
// yields the canonical "not found" reply without calling the LLM. Collaborator
// failures propagate to the caller after being logged.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*models.Answer, error) {
	totalStart := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = ModeAnswer
	}

	retrievalStart := time.Now()
	passages, err := e.Retrieve(ctx, req.Question, req.DocumentIDs, req.Verbose)
	retrievalLatency := msSince(retrievalStart)
	if err != nil {
		e.logQuery(req, mode, msSince(totalStart), retrievalLatency, 0, nil, err)
		return nil, err
	}

	context, sources := buildContext(passages)

	var answer string
	var llmLatency float64
	switch {
	case len(passages) == 0:
		answer = noAnswerReply
	case e.client == nil:
		return nil, fmt.Errorf("no text-generation client configured")
	default:
		userPrompt := fmt.Sprintf("Question: %s\n\nCONTEXT:\n%s\n\nAvailable sources:\n%s",
			req.Question, context, sourceList(sources))
		llmStart := time.Now()
		switch mode {
		case ModeSummary:
			answer, err = e.client.Summarize(ctx, summarySystemPrompt, userPrompt)
		case ModeExtract:
			answer, err = e.client.Extract(ctx, extractSystemPrompt, userPrompt)
		default:
			answer, err = e.client.Answer(ctx, answerSystemPrompt, userPrompt)
		}
		llmLatency = msSince(llmStart)
		if err != nil {
			e.logQuery(req, mode, msSince(totalStart), retrievalLatency, llmLatency, passages, err)
			return nil, err
		}
	}

	e.logQuery(req, mode, msSince(totalStart), retrievalLatency, llmLatency, passages, nil)
	return &models.Answer{
		Answer:   answer,
		Sources:  sources,
		Mode:     mode,
		Passages: passages,
	}, nil
}

// buildContext joins passage texts into the prompt context and collects
// deduplicated document/page sources in retrieval order.
func buildContext(passages []models.Passage) (string, []models.Source) {
	parts := make([]string, 0, len(passages))
	var sources []models.Source
	seen := make(map[string]bool)
	for _, p := range passages {
		parts = append(parts, p.Text)
		key := fmt.Sprintf("%s|%d", p.Meta.DocumentName, p.Meta.PageNumber)
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, models.Source{
			DocumentName: p.Meta.DocumentName,
			PageNumber:   p.Meta.PageNumber,
			Snippet:      utils.Truncate(p.Text, 200),
		})
	}
	return strings.Join(parts, "\n\n---\n\n"), sources
}

func sourceList(sources []models.Source) string {
	if len(sources) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(sources))
	for i, s := range sources {
		name := s.DocumentName
		if name == "" {
			name = "unknown document"
		}
		lines[i] = fmt.Sprintf("- %s p.%d", name, s.PageNumber)
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) modelFor(mode string) string {
	switch mode {
	case ModeSummary:
		return e.llmModels.Summary
	case ModeExtract:
		return e.llmModels.Extract
	default:
		return e.llmModels.Answer
	}
}

func (e *Engine) logQuery(req AskRequest, mode string, total, retrieval, llmLatency float64, passages []models.Passage, err error) {
	if e.qlog == nil {
		return
	}
	entry := querylog.Entry{
		RequestID:          req.RequestID,
		Query:              req.Question,
		Mode:               mode,
		Model:              e.modelFor(mode),
		LatencyMS:          total,
		RetrievalLatencyMS: retrieval,
		LLMLatencyMS:       llmLatency,
		Success:            err == nil,
		WorkspaceID:        e.workspaceID,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		stats := &querylog.RetrievalStats{
			Strategy:      string(e.retriever.Mode()),
			NumCandidates: len(passages),
			TopK:          e.retriever.TopK(),
		}
		for _, p := range passages {
			stats.Sources = append(stats.Sources, querylog.SourceStat{
				ID:           p.ChunkID,
				Score:        p.Score,
				DocumentName: p.Meta.DocumentName,
				PageNumber:   p.Meta.PageNumber,
			})
		}
		entry.Retrieval = stats
	}
	e.qlog.Append(entry)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
