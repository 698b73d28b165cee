package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/temporalx"
	"github.com/recallhq/recall/internal/temporalx/ingestrun"
	"github.com/recallhq/recall/internal/utils"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Runner struct {
	log *logger.Logger

	tc    temporalsdkclient.Client
	steps *ingest.Steps
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, steps *ingest.Steps) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if steps == nil {
		return nil, fmt.Errorf("temporal worker missing ingest steps")
	}
	return &Runner{
		log:   log,
		tc:    tc,
		steps: steps,
	}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	maxWait := 60 * time.Second
	backoff := 250 * time.Millisecond
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		w, err := r.newWorker()
		if err != nil {
			return err
		}
		startErr := w.Start()
		if startErr == nil {
			if ctx != nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
			}
			if r.log != nil {
				r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}

		// Make sure worker goroutines are stopped before we retry.
		w.Stop()

		if time.Now().After(deadline) {
			// A missing namespace will never heal without config changes.
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		if r.log != nil {
			r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		}

		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) newWorker() (worker.Worker, error) {
	if r == nil || r.tc == nil {
		return nil, fmt.Errorf("temporal worker not initialized")
	}
	cfg := temporalx.LoadConfig()

	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &ingestrun.Activities{
		Log:   r.log,
		Steps: r.steps,
	}

	w.RegisterWorkflowWithOptions(ingestrun.Workflow, workflow.RegisterOptions{Name: ingestrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.EmbedChunk, activity.RegisterOptions{Name: ingestrun.ActivityEmbedChunk})
	w.RegisterActivityWithOptions(acts.UpsertChunk, activity.RegisterOptions{Name: ingestrun.ActivityUpsertChunk})
	return w, nil
}
