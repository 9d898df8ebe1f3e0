// Package embed maps chunk text to unit-normalized vectors (spec.md
// §4.2). The embedding model runtime itself is an external contract —
// this package talks to it as a subprocess over HTTP, the way
// project-cortex's internal/embed package drives its cortex-embed
// sidecar binary — and never ships or links a model.
package embed

import "context"

// EmbedMode distinguishes query encodings from passage (chunk) encodings,
// since some embedding models use asymmetric instructions for the two.
type EmbedMode string

const (
	EmbedModeQuery   EmbedMode = "query"
	EmbedModePassage EmbedMode = "passage"
)

// Provider maps text to unit-normalized vectors. Embed is a pure
// function of (model, text): the same text under the same model tag
// always yields the same vector, per spec.md §4.2.
type Provider interface {
	// Embed converts texts into vectors in the same order. It does not
	// split texts into batches itself; EmbedBatched does that at a
	// caller-chosen batch size.
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)

	// Dimensions reports the fixed vector width this provider produces.
	Dimensions() int

	// ModelTag identifies the model for the stored-model-mismatch check
	// at query time (spec.md §4.2).
	ModelTag() string

	Close() error
}
