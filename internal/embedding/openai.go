package embedding

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const defaultBatchSize = 128

// OpenAIProvider embeds text via the OpenAI embeddings API in fixed-size
// batches, preserving input order.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIProvider creates a provider for the given embedding model.
// The API key is read from OPENAI_API_KEY.
func NewOpenAIProvider(model string, dimensions, batchSize int) (*OpenAIProvider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OpenAIProvider{
		client:     openai.NewClient(key),
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
	}, nil
}

// EmbedTexts embeds texts in batches and returns vectors in input order.
func (p *OpenAIProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(p.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(resp.Data))
		}
		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}
	return vectors, nil
}

// Dimensions returns the configured embedding dimension.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}
