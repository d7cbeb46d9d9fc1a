package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/lexical"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/retriever"
	"github.com/granskad/hamta/internal/vector"
)

func benchIndex(b *testing.B, n, dims int) (*vector.MemoryIndex, embedding.Provider) {
	b.Helper()
	provider := embedding.NewMockProvider(dims)
	idx, err := vector.NewMemoryIndex(dims, true)
	if err != nil {
		b.Fatal(err)
	}
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("document %d discusses topic %d in some detail", i, i%17)
	}
	vecs, err := provider.EmbedTexts(context.Background(), texts)
	if err != nil {
		b.Fatal(err)
	}
	items := make([]vector.Item, n)
	for i := range items {
		items[i] = vector.Item{
			ID:        fmt.Sprintf("chunk-%d", i+1),
			Embedding: vecs[i],
			Meta:      models.ChunkMeta{ChunkID: fmt.Sprintf("chunk-%d", i+1), WorkspaceID: "bench", Text: texts[i]},
		}
	}
	if err := idx.Add(context.Background(), items); err != nil {
		b.Fatal(err)
	}
	return idx, provider
}

func BenchmarkRetrieveHybrid(b *testing.B) {
	idx, provider := benchIndex(b, 1000, 64)
	r := retriever.New(idx, provider, retriever.Options{TopK: 10, Mode: retriever.ModeHybrid, Alpha: 0.35, Beta: 0.65}, nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Retrieve(ctx, retriever.Request{Question: "topic 5 detail", WorkspaceID: "bench"}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBM25Scores(b *testing.B) {
	docs := make([][]string, 1000)
	for i := range docs {
		docs[i] = lexical.Tokenize(fmt.Sprintf("document %d discusses topic %d in some detail", i, i%17))
	}
	model := lexical.NewModel(docs)
	query := lexical.Tokenize("topic 5 detail")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = model.Scores(query)
	}
}

func BenchmarkMockProviderEmbed(b *testing.B) {
	p := embedding.NewMockProvider(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.EmbedTexts(ctx, []string{"benchmark query text for embedding"}); err != nil {
			b.Fatal(err)
		}
	}
}
