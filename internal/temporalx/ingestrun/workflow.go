package ingestrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/recallhq/recall/internal/ingest"
)

// Workflow ingests one document: split into chunks, then per chunk an
// embed activity followed by an upsert activity. Each activity is a
// retriable step with its own bounded retry policy; a chunk whose step
// exhausts retries is recorded as failed and the workflow moves on to the
// remaining chunks. Both steps are idempotent (embedding is pure, upsert
// writes under the chunk's deterministic id), so at-least-once execution
// under retry is safe.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	res := Result{DocID: strings.TrimSpace(in.DocID)}
	if res.DocID == "" {
		return res, fmt.Errorf("ingestrun: missing doc_id")
	}

	chunks := ingest.SplitChunks(res.DocID, in.Text, in.ChunkSize)
	res.Chunks = len(chunks)

	log := workflow.GetLogger(ctx)
	log.Info("Ingesting document", "doc_id", res.DocID, "chunks", len(chunks))

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	for _, c := range chunks {
		var embedding []float32
		if err := workflow.ExecuteActivity(ctx, ActivityEmbedChunk, c).Get(ctx, &embedding); err != nil {
			log.Warn("Embed step exhausted retries; skipping chunk", "doc_id", c.DocID, "chunk", c.Index, "error", err)
			res.FailedChunks = append(res.FailedChunks, c.Index)
			continue
		}

		up := UpsertInput{
			DocID:     c.DocID,
			Index:     c.Index,
			Text:      c.Text,
			Embedding: embedding,
		}
		if err := workflow.ExecuteActivity(ctx, ActivityUpsertChunk, up).Get(ctx, nil); err != nil {
			log.Warn("Upsert step exhausted retries; skipping chunk", "doc_id", c.DocID, "chunk", c.Index, "error", err)
			res.FailedChunks = append(res.FailedChunks, c.Index)
			continue
		}
	}

	return res, nil
}
