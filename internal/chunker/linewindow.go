package chunker

import (
	"context"
	"strings"

	"github.com/bobbin-dev/bobbin/internal/model"
)

// lineWindowChunker is the universal fallback: it slices a file into
// fixed-size overlapping windows of lines, used both for languages with
// no grammar and whenever a syntax-aware parser fails (spec.md §4.1
// Failure clause: "malformed parse → fall back to the line-window
// chunker for that file; never abort the whole indexing run").
type lineWindowChunker struct {
	windowSize int
	overlap    int
}

// NewLineWindow creates a line-window chunker with the given window
// size and overlap, in lines.
func NewLineWindow(windowSize, overlap int) Chunker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 || overlap >= windowSize {
		overlap = DefaultWindowOverlap
	}
	return &lineWindowChunker{windowSize: windowSize, overlap: overlap}
}

func (c *lineWindowChunker) ChunkFile(ctx context.Context, filePath, language, content string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, nil
	}

	lines := strings.Split(content, "\n")
	total := len(lines)
	step := c.windowSize - c.overlap
	if step <= 0 {
		step = c.windowSize
	}

	var chunks []model.Chunk
	for start := 0; start < total; start += step {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		end := start + c.windowSize
		if end > total {
			end = total
		}
		windowLines := lines[start:end]
		text := strings.Join(windowLines, "\n")

		chunks = append(chunks, model.NewChunk(
			filePath, model.ChunkOther, "", start+1, end, text, language,
		))

		if end >= total {
			break
		}
	}

	return Result{Chunks: chunks}, nil
}
