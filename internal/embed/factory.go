package embed

import (
	"context"
	"fmt"

	"github.com/bobbin-dev/bobbin/internal/config"
)

// knownModelDimensions maps a known model tag to its output width, so
// the dimension doesn't have to round-trip through the subprocess
// before the store schema can be created.
var knownModelDimensions = map[string]int{
	"all-MiniLM-L6-v2": 384,
	"bge-small-en-v1.5": 384,
	"mock":             384,
}

// NewProvider builds the Provider named by cfg.Provider ("local" or
// "mock"); unrecognized values are a configuration error (spec.md §7).
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	dim := knownModelDimensions[cfg.Model]
	if dim == 0 {
		dim = 384
	}

	switch cfg.Provider {
	case "", "local":
		binaryPath := cfg.BinaryPath
		if binaryPath == "" {
			binaryPath = "bobbin-embed"
		}
		port := cfg.Port
		if port == 0 {
			port = 8712
		}
		return newLocalProvider(ctx, binaryPath, cfg.Model, dim, port)

	case "mock":
		return newMockProvider(dim), nil

	default:
		return nil, fmt.Errorf("embed: unsupported provider %q (supported: local, mock)", cfg.Provider)
	}
}
