package embed

import (
	"context"
	"crypto/sha256"
)

// mockProvider is a deterministic, dependency-free stand-in for tests
// and for running without the model runtime installed: it hashes each
// text into a fixed-width vector, so identical text always yields an
// identical (and already unit-normalized) vector.
type mockProvider struct {
	dim int
}

func newMockProvider(dim int) *mockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &mockProvider{dim: dim}
}

func (m *mockProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.hashVector(t)
	}
	return out, nil
}

func (m *mockProvider) hashVector(text string) []float32 {
	v := make([]float32, m.dim)
	sum := sha256.Sum256([]byte(text))
	for i := range v {
		b := sum[i%len(sum)]
		v[i] = float32(b)/127.5 - 1
	}
	normalize(v)
	return v
}

func (m *mockProvider) Dimensions() int   { return m.dim }
func (m *mockProvider) ModelTag() string  { return "mock" }
func (m *mockProvider) Close() error      { return nil }

var _ Provider = (*mockProvider)(nil)
