package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/rerank"
	"github.com/granskad/hamta/internal/retriever"
	"github.com/granskad/hamta/internal/vector"
)

type recordingClient struct {
	lastMethod string
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (c *recordingClient) record(method, system, user string) (string, error) {
	c.lastMethod = method
	c.lastSystem = system
	c.lastUser = user
	return c.reply, c.err
}

func (c *recordingClient) Answer(ctx context.Context, s, u string) (string, error) {
	return c.record("answer", s, u)
}
func (c *recordingClient) Summarize(ctx context.Context, s, u string) (string, error) {
	return c.record("summary", s, u)
}
func (c *recordingClient) Extract(ctx context.Context, s, u string) (string, error) {
	return c.record("extract", s, u)
}

type fixedOracle struct {
	scores map[string]float64
	calls  int
}

func (o *fixedOracle) Score(ctx context.Context, query, text string) (float64, error) {
	o.calls++
	return o.scores[text], nil
}

func testRetriever(t *testing.T, texts []string) (*retriever.Retriever, *embedding.MockProvider) {
	t.Helper()
	provider := embedding.NewMockProvider(8)
	idx, err := vector.NewMemoryIndex(8, true)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	vecs, err := provider.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	items := make([]vector.Item, len(texts))
	for i, text := range texts {
		id := "chunk-" + string(rune('1'+i))
		items[i] = vector.Item{
			ID:        id,
			Embedding: vecs[i],
			Meta: models.ChunkMeta{
				ChunkID: id, WorkspaceID: "ws",
				DocumentName: "doc.txt", PageNumber: i + 1, Text: text,
			},
		}
	}
	if err := idx.Add(ctx, items); err != nil {
		t.Fatal(err)
	}
	return retriever.New(idx, provider, retriever.Options{TopK: 10}, nil), provider
}

func TestAsk_AnswersFromPassages(t *testing.T) {
	retr, _ := testRetriever(t, []string{
		"the payment service retries three times",
		"deploys happen every tuesday",
	})
	client := &recordingClient{reply: "Three times."}
	eng := New("ws", retr, Options{Client: client})

	answer, err := eng.Ask(context.Background(), AskRequest{Question: "how many retries"})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Answer != "Three times." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if answer.Mode != ModeAnswer {
		t.Errorf("mode = %q", answer.Mode)
	}
	if client.lastMethod != "answer" {
		t.Errorf("method = %q", client.lastMethod)
	}
	if !strings.Contains(client.lastUser, "how many retries") {
		t.Error("question missing from prompt")
	}
	if !strings.Contains(client.lastUser, "---") {
		t.Error("passages not joined into context")
	}
	// Both passages are from the same doc but different pages; sources keep
	// one entry per (document, page).
	if len(answer.Sources) != 2 {
		t.Errorf("sources = %+v", answer.Sources)
	}
}

func TestAsk_ModeRouting(t *testing.T) {
	retr, _ := testRetriever(t, []string{"some indexed text"})
	client := &recordingClient{reply: "ok"}
	eng := New("ws", retr, Options{Client: client})
	ctx := context.Background()

	for _, tc := range []struct{ mode, method string }{
		{ModeSummary, "summary"},
		{ModeExtract, "extract"},
		{"", "answer"},
	} {
		if _, err := eng.Ask(ctx, AskRequest{Question: "anything", Mode: tc.mode}); err != nil {
			t.Fatal(err)
		}
		if client.lastMethod != tc.method {
			t.Errorf("mode %q routed to %q", tc.mode, client.lastMethod)
		}
	}
}

func TestAsk_EmptyWorkspaceSkipsClient(t *testing.T) {
	retr, _ := testRetriever(t, nil)
	// Nil client: would error if invoked.
	eng := New("ws", retr, Options{})
	answer, err := eng.Ask(context.Background(), AskRequest{Question: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Answer != noAnswerReply {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Passages) != 0 || len(answer.Sources) != 0 {
		t.Errorf("unexpected passages/sources: %+v", answer)
	}
}

func TestAsk_ClientFailurePropagates(t *testing.T) {
	retr, _ := testRetriever(t, []string{"some indexed text"})
	client := &recordingClient{err: errors.New("model overloaded")}
	eng := New("ws", retr, Options{Client: client})
	if _, err := eng.Ask(context.Background(), AskRequest{Question: "anything"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetrieve_RerankAppliedAndBounded(t *testing.T) {
	retr, _ := testRetriever(t, []string{
		"passage one", "passage two", "passage three", "passage four",
	})
	oracle := &fixedOracle{scores: map[string]float64{
		"passage one": 0.1, "passage two": 0.2,
		"passage three": 0.95, "passage four": 0.3,
	}}
	eng := New("ws", retr, Options{
		Reranker:         rerank.New(oracle, 1.0, nil),
		RerankInputTopK:  3,
		RerankOutputTopK: 2,
	})

	passages, err := eng.Retrieve(context.Background(), "passage", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 2 {
		t.Fatalf("got %d passages", len(passages))
	}
	// Only the top 3 retrieved candidates were scored.
	if oracle.calls != 3 {
		t.Errorf("oracle calls = %d, want 3", oracle.calls)
	}
	if passages[0].FinalScore < passages[1].FinalScore {
		t.Error("not sorted by final score")
	}
}

func TestRetrieve_SinglePassageSkipsRerank(t *testing.T) {
	retr, _ := testRetriever(t, []string{"lone passage"})
	oracle := &fixedOracle{scores: map[string]float64{}}
	eng := New("ws", retr, Options{Reranker: rerank.New(oracle, 0.7, nil)})

	passages, err := eng.Retrieve(context.Background(), "lone", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages", len(passages))
	}
	if oracle.calls != 0 {
		t.Errorf("oracle called %d times for single passage", oracle.calls)
	}
}

func TestBuildContext_DedupesSources(t *testing.T) {
	passages := []models.Passage{
		{Text: "a", Meta: models.ChunkMeta{DocumentName: "d.txt", PageNumber: 1}},
		{Text: "b", Meta: models.ChunkMeta{DocumentName: "d.txt", PageNumber: 1}},
		{Text: "c", Meta: models.ChunkMeta{DocumentName: "d.txt", PageNumber: 2}},
	}
	context, sources := buildContext(passages)
	if len(sources) != 2 {
		t.Errorf("sources = %+v", sources)
	}
	if !strings.Contains(context, "a\n\n---\n\nb") {
		t.Errorf("context = %q", context)
	}
}
