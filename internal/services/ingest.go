package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/temporalx/ingestrun"
	"github.com/recallhq/recall/internal/types"
)

const (
	// DefaultInlineConcurrency caps parallel chunk pipelines when
	// running without Temporal.
	DefaultInlineConcurrency = 4

	inlineMaxAttempts = 5
	inlineBaseBackoff = time.Second
	inlineMaxBackoff  = 30 * time.Second
)

// IngestAccepted describes a dispatched ingestion run.
type IngestAccepted struct {
	DocID      string `json:"doc_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Inline     bool   `json:"inline,omitempty"`
}

// IngestService routes documents into the chunk/embed/upsert pipeline.
// With a Temporal client it starts a durable workflow; without one it
// runs the same steps inline so single-process deployments still work.
type IngestService struct {
	log       *logger.Logger
	tc        client.Client
	taskQueue string
	steps     *ingest.Steps
	chunkSize int
	inflight  sync.WaitGroup

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewIngestService(log *logger.Logger, tc client.Client, taskQueue string, steps *ingest.Steps, chunkSize int) *IngestService {
	if chunkSize <= 0 {
		chunkSize = ingest.DefaultChunkSize
	}
	return &IngestService{
		log:         log.With("service", "IngestService"),
		tc:          tc,
		taskQueue:   taskQueue,
		steps:       steps,
		chunkSize:   chunkSize,
		maxAttempts: inlineMaxAttempts,
		baseBackoff: inlineBaseBackoff,
		maxBackoff:  inlineMaxBackoff,
	}
}

// Ingest accepts a document and dispatches its pipeline. The returned
// acceptance means the run started, not that it finished; chunk
// failures surface in logs and, on the workflow path, in the run
// result.
func (s *IngestService) Ingest(ctx context.Context, doc types.Document) (*IngestAccepted, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if doc.Text == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	if s.tc != nil {
		return s.startWorkflow(ctx, doc)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		res := s.runInline(context.Background(), doc)
		if len(res.FailedChunks) > 0 {
			s.log.Warn("Inline ingestion finished with failed chunks",
				"doc_id", doc.ID, "chunks", res.Chunks, "failed", res.FailedChunks)
			return
		}
		s.log.Info("Inline ingestion finished", "doc_id", doc.ID, "chunks", res.Chunks)
	}()
	return &IngestAccepted{DocID: doc.ID, Inline: true}, nil
}

// Wait blocks until all inline runs started so far have finished.
func (s *IngestService) Wait() {
	s.inflight.Wait()
}

func (s *IngestService) startWorkflow(ctx context.Context, doc types.Document) (*IngestAccepted, error) {
	opts := client.StartWorkflowOptions{
		ID:        "ingest-" + doc.ID,
		TaskQueue: s.taskQueue,
		// Re-ingesting a doc starts a fresh run once the previous one
		// closes; upserts are idempotent by record id either way.
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	run, err := s.tc.ExecuteWorkflow(ctx, opts, ingestrun.WorkflowName, ingestrun.Input{
		DocID:     doc.ID,
		Text:      doc.Text,
		ChunkSize: s.chunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("start ingest workflow: %w", err)
	}
	s.log.Info("Ingest workflow started", "doc_id", doc.ID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return &IngestAccepted{DocID: doc.ID, WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

// runInline mirrors the workflow semantics without durability: bounded
// retries per chunk, failed chunks recorded and skipped, the rest of
// the document still lands.
func (s *IngestService) runInline(ctx context.Context, doc types.Document) ingestrun.Result {
	chunks := ingest.SplitChunks(doc.ID, doc.Text, s.chunkSize)
	res := ingestrun.Result{DocID: doc.ID, Chunks: len(chunks)}
	if len(chunks) == 0 {
		return res
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultInlineConcurrency)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			if err := s.processChunk(ctx, chunk); err != nil {
				s.log.Warn("Chunk failed after retries; continuing",
					"doc_id", chunk.DocID, "chunk_index", chunk.Index, "error", err)
				mu.Lock()
				res.FailedChunks = append(res.FailedChunks, chunk.Index)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(res.FailedChunks)
	return res
}

// processChunk runs the two pipeline steps with independent retry
// budgets, mirroring the workflow's per-activity policy: an upsert
// failure never re-runs an embed that already succeeded.
func (s *IngestService) processChunk(ctx context.Context, chunk types.Chunk) error {
	var embedding []float32
	err := s.retryStep(ctx, func() error {
		var stepErr error
		embedding, stepErr = s.steps.EmbedChunk(ctx, chunk)
		return stepErr
	})
	if err != nil {
		return err
	}
	return s.retryStep(ctx, func() error {
		return s.steps.UpsertChunk(ctx, chunk, embedding)
	})
}

func (s *IngestService) retryStep(ctx context.Context, step func() error) error {
	var lastErr error
	backoff := s.baseBackoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}
		if lastErr = step(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
