package temporalworker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Shreekar11/insura-ai-sub003/internal/jobs/docpipeline"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/envutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
	"github.com/Shreekar11/insura-ai-sub003/internal/temporalx"
)

// Runner owns the Temporal worker process: one task queue, the document
// pipeline workflow, and its activities.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	acts *docpipeline.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, acts *docpipeline.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if log == nil || acts == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{log: log, tc: tc, acts: acts}, nil
}

// Start launches the worker and retries transient startup failures with
// bounded backoff. Returns once the worker is polling; the worker stops when
// ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	maxWait := 60 * time.Second
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if time.Now().After(deadline) {
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)

		sleep := 250 * time.Millisecond << uint(attempt-1)
		if sleep > 5*time.Second {
			sleep = 5 * time.Second
		}
		time.Sleep(sleep)
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	w.RegisterWorkflowWithOptions(docpipeline.Workflow, workflow.RegisterOptions{Name: docpipeline.WorkflowName})
	w.RegisterActivityWithOptions(r.acts.ProcessPages, activity.RegisterOptions{Name: docpipeline.ActivityProcessPages})
	w.RegisterActivityWithOptions(r.acts.ClassifyAggregate, activity.RegisterOptions{Name: docpipeline.ActivityClassifyAggregate})
	w.RegisterActivityWithOptions(r.acts.ClassifyTier1, activity.RegisterOptions{Name: docpipeline.ActivityClassifyTier1})
	w.RegisterActivityWithOptions(r.acts.ExtractSections, activity.RegisterOptions{Name: docpipeline.ActivityExtractSections})
	w.RegisterActivityWithOptions(r.acts.ResolveEntities, activity.RegisterOptions{Name: docpipeline.ActivityResolveEntities})
	w.RegisterActivityWithOptions(r.acts.ValidateDocument, activity.RegisterOptions{Name: docpipeline.ActivityValidateDocument})
	return w
}
