package ingest

import (
	"context"
	"fmt"

	"github.com/recallhq/recall/internal/clients/openai"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/vector"
)

// Steps holds the two retriable units of ingestion work. Both are
// idempotent: embedding is a pure function of the chunk text, and the
// upsert writes under the chunk's deterministic record id, so re-running
// either after a partial failure cannot corrupt the index.
type Steps struct {
	AI    openai.Client
	Store vector.Store
}

// EmbedChunk embeds one chunk's text.
func (s *Steps) EmbedChunk(ctx context.Context, chunk types.Chunk) ([]float32, error) {
	if s == nil || s.AI == nil {
		return nil, fmt.Errorf("ingest steps not configured")
	}
	vecs, err := s.AI.Embed(ctx, []string{chunk.Text})
	if err != nil {
		return nil, fmt.Errorf("embed chunk %s: %w", chunk.RecordID(), err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed chunk %s: empty embedding", chunk.RecordID())
	}
	return vecs[0], nil
}

// UpsertChunk writes the embedded chunk to the vector index. Runs only
// after the chunk's embed step has succeeded.
func (s *Steps) UpsertChunk(ctx context.Context, chunk types.Chunk, embedding []float32) error {
	if s == nil || s.Store == nil {
		return fmt.Errorf("ingest steps not configured")
	}
	record := types.VectorRecord{
		ID:        chunk.RecordID(),
		Embedding: embedding,
		Metadata:  map[string]any{"text": chunk.Text},
	}
	if err := s.Store.Upsert(ctx, []types.VectorRecord{record}); err != nil {
		return fmt.Errorf("upsert chunk %s: %w", chunk.RecordID(), err)
	}
	return nil
}
