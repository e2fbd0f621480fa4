package app

import (
	"context"
	"fmt"

	"healthlog/internal/domain"
	"healthlog/internal/metrics"
)

// ChunkSize is the most records or ids sent to the store in one call.
const ChunkSize = 100

// ChunkError reports the failing chunk of a bulk operation. Chunks issued
// before it stay committed; nothing is rolled back.
type ChunkError struct {
	Op        string
	Chunk     int
	Committed int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s: chunk %d failed after %d items committed: %v", e.Op, e.Chunk+1, e.Committed, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// chunks slices items into consecutive runs of at most size elements.
func chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// upsertChunked writes recs in order, one store call per chunk, and
// returns everything persisted so far alongside any error.
func upsertChunked(ctx context.Context, store domain.RecordStore, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
	written := make([]domain.HealthRecord, 0, len(recs))
	committed := 0
	for i, c := range chunks(recs, ChunkSize) {
		out, err := store.UpsertMany(ctx, c)
		metrics.RecordStoreCall("upsert", err)
		if err != nil {
			return written, &ChunkError{Op: "bulk upsert", Chunk: i, Committed: committed, Err: err}
		}
		committed += len(c)
		written = append(written, out...)
	}
	return written, nil
}

// deleteChunked removes ids in order, one store call per chunk.
func deleteChunked(ctx context.Context, store domain.RecordStore, userID int64, ids []int64) error {
	committed := 0
	for i, c := range chunks(ids, ChunkSize) {
		err := store.DeleteMany(ctx, userID, c)
		metrics.RecordStoreCall("delete", err)
		if err != nil {
			return &ChunkError{Op: "bulk delete", Chunk: i, Committed: committed, Err: err}
		}
		committed += len(c)
	}
	return nil
}
