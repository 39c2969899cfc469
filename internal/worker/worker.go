package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

// Worker polls for pending jobs and dispatches them to the processor with
// bounded concurrency. Stale processing jobs are surfaced in logs but never
// transitioned automatically: a slow worker may still own them, and two
// writers deciding a job's fate is worse than a late one.
type Worker struct {
	store     store.Store
	processor *Processor
	cfg       config.WorkerConfig
	logger    *slog.Logger
}

func New(s store.Store, p *Processor, cfg config.WorkerConfig, logger *slog.Logger) *Worker {
	return &Worker{store: s, processor: p, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled, then drains in-flight jobs before
// returning.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"poll_interval", w.cfg.PollInterval,
		"max_concurrent", w.cfg.MaxConcurrent,
		"max_attempts", w.cfg.MaxAttempts)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	staleTicker := time.NewTicker(w.cfg.StaleAfter)
	defer staleTicker.Stop()

	sem := make(chan struct{}, w.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping, draining in-flight jobs")
			wg.Wait()
			w.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
			w.dispatch(ctx, sem, &wg)
		case <-staleTicker.C:
			w.reportStale(ctx)
		}
	}
}

// dispatch claims as many pending jobs as free slots allow, oldest first.
func (w *Worker) dispatch(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	jobs, err := w.store.ListPendingJobs(ctx, w.cfg.MaxConcurrent)
	if err != nil {
		w.logger.Error("listing pending jobs", "error", err)
		return
	}

	for _, job := range jobs {
		select {
		case sem <- struct{}{}:
		default:
			return // all slots busy; the next tick picks the rest up
		}

		wg.Add(1)
		go func(job *models.Job) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("panic processing job", "job_id", job.ID, "panic", r)
				}
				<-sem
				wg.Done()
			}()
			// Detached so an in-flight job finishes during shutdown drain
			// instead of being aborted halfway through extraction.
			w.processor.Process(context.WithoutCancel(ctx), job)
		}(job)
	}
}

// reportStale logs processing jobs whose last progress write is older than
// the configured threshold.
func (w *Worker) reportStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.cfg.StaleAfter)
	stale, err := w.store.ListStaleJobs(ctx, cutoff)
	if err != nil {
		w.logger.Error("listing stale jobs", "error", err)
		return
	}
	for _, job := range stale {
		w.logger.Warn("job processing past stale threshold",
			"job_id", job.ID, "job_type", job.JobType,
			"updated_at", job.UpdatedAt, "stale_after", w.cfg.StaleAfter)
	}
}
