package embed

import (
	"context"
	"fmt"
)

// Progress reports embedding throughput for a long ingest run on
// EmbedBatched's optional progress channel. The ingest pipeline passes
// a nil channel, and cmd/bobbin shows a spinner rather than per-batch
// progress.
type Progress struct {
	BatchIndex      int
	TotalBatches    int
	ProcessedChunks int
	TotalChunks     int
}

// EmbedBatched splits texts into batchSize-sized groups and feeds them to
// provider sequentially, since the embedder's single-writer inference
// lock (spec.md §5 concurrency model) means concurrent batches would
// just serialize at the provider anyway. progressCh may be nil.
func EmbedBatched(ctx context.Context, provider Provider, texts []string, mode EmbedMode, batchSize int, progressCh chan<- Progress) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = total
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, total)

	processed := 0
	for batch := 0; batch < numBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := batch * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		vectors, err := provider.Embed(ctx, texts[start:end], mode)
		if err != nil {
			return nil, fmt.Errorf("embed: batch %d/%d: %w", batch+1, numBatches, err)
		}
		copy(results[start:end], vectors)

		processed += end - start
		if progressCh != nil {
			select {
			case progressCh <- Progress{BatchIndex: batch + 1, TotalBatches: numBatches, ProcessedChunks: processed, TotalChunks: total}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return results, nil
}
