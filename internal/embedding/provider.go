// Package embedding provides the embedding provider collaborator interface,
// an OpenAI-backed implementation, and an LRU cache wrapper.
package embedding

import "context"

// Provider produces vector embeddings for text. EmbedTexts is
// order-preserving: the i-th vector embeds the i-th input. Implementations
// own their retry and timeout policy; callers propagate failures unmodified.
type Provider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
