package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockProvider is a deterministic embedder for tests. The same text always
// yields the same unit-norm vector.
type MockProvider struct {
	dimensions int

	// Fixed, when set, overrides the derived vector for exact texts.
	Fixed map[string][]float32
}

// NewMockProvider returns a provider producing deterministic embeddings of
// the given dimension.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// EmbedTexts derives one vector per text from its hash.
func (p *MockProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if fixed, ok := p.Fixed[text]; ok {
			vec := make([]float32, len(fixed))
			copy(vec, fixed)
			vectors[i] = vec
			continue
		}
		vectors[i] = p.derive(text)
	}
	return vectors, nil
}

func (p *MockProvider) derive(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := int(h.Sum32() % 100003)

	vec := make([]float32, p.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}
