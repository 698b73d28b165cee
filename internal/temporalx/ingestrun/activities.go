package ingestrun

import (
	"context"
	"fmt"

	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

// Activities are the worker-side implementations of the two ingestion
// steps. Retries are owned by the workflow's activity retry policy, not
// by the activities themselves.
type Activities struct {
	Log   *logger.Logger
	Steps *ingest.Steps
}

func (a *Activities) EmbedChunk(ctx context.Context, chunk types.Chunk) ([]float32, error) {
	if a == nil || a.Steps == nil {
		return nil, fmt.Errorf("ingestrun: activity not configured")
	}
	embedding, err := a.Steps.EmbedChunk(ctx, chunk)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("Embed chunk activity failed", "doc_id", chunk.DocID, "chunk", chunk.Index, "error", err)
		}
		return nil, err
	}
	return embedding, nil
}

func (a *Activities) UpsertChunk(ctx context.Context, in UpsertInput) error {
	if a == nil || a.Steps == nil {
		return fmt.Errorf("ingestrun: activity not configured")
	}
	chunk := types.Chunk{DocID: in.DocID, Index: in.Index, Text: in.Text}
	if err := a.Steps.UpsertChunk(ctx, chunk, in.Embedding); err != nil {
		if a.Log != nil {
			a.Log.Warn("Upsert chunk activity failed", "doc_id", in.DocID, "chunk", in.Index, "error", err)
		}
		return err
	}
	return nil
}
