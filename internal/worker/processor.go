package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/internal/cache"
	"github.com/wastewise/wastewise/internal/executor"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

const snapshotTTL = 30 * time.Minute

// Processor drives one job through its lifecycle: claim, execute, and exactly
// one terminal (or requeue) transition. Every state change is a conditional
// write, so a job cancelled mid-flight loses the race cleanly instead of
// being overwritten.
type Processor struct {
	store       store.Store
	cache       cache.Cache
	executor    *executor.Executor
	maxAttempts int
	logger      *slog.Logger
}

func NewProcessor(s store.Store, c cache.Cache, exec *executor.Executor, maxAttempts int, logger *slog.Logger) *Processor {
	return &Processor{
		store:       s,
		cache:       c,
		executor:    exec,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Process claims and runs one pending job. Returns false when the claim was
// lost to another worker.
func (p *Processor) Process(ctx context.Context, job *models.Job) bool {
	claimed, err := p.store.ClaimJob(ctx, job.ID)
	if err != nil {
		p.logger.Error("claiming job", "job_id", job.ID, "error", err)
		return false
	}
	if !claimed {
		return false
	}

	p.logger.Info("job claimed",
		"job_id", job.ID, "job_type", job.JobType,
		"property_id", job.PropertyID, "attempt", job.RetryCount+1)
	p.refreshSnapshot(ctx, job.ID)

	sink := &progressSink{
		store:      p.store,
		jobID:      job.ID,
		totalSteps: p.executor.TotalSteps(job.JobType),
	}

	result, usage, err := p.executor.Execute(ctx, job, executor.ExplicitIdentity(job.UserID), sink)
	if err != nil {
		p.settleFailure(ctx, job, err, usage)
		return true
	}

	if err := p.store.CompleteJob(ctx, job.ID, result, usage); err != nil {
		if errors.Is(err, store.ErrNotProcessing) {
			// Cancelled at the finish line; the result is discarded.
			p.logger.Info("job cancelled before completion", "job_id", job.ID)
		} else {
			p.logger.Error("completing job", "job_id", job.ID, "error", err)
		}
		p.refreshSnapshot(ctx, job.ID)
		return true
	}

	p.logger.Info("job completed", "job_id", job.ID, "job_type", job.JobType,
		"extraction_calls", usage.Calls, "extraction_cost_cents", usage.CostCents)
	p.refreshSnapshot(ctx, job.ID)
	return true
}

// settleFailure routes a failed attempt to requeue or a terminal failure.
func (p *Processor) settleFailure(ctx context.Context, job *models.Job, execErr error, usage models.Usage) {
	if errors.Is(execErr, store.ErrNotProcessing) {
		// The job left processing underneath us — cancellation observed at
		// a progress write. Nothing to transition.
		p.logger.Info("job cancelled mid-execution", "job_id", job.ID)
		p.refreshSnapshot(ctx, job.ID)
		return
	}

	jobErr := executor.Normalize(execErr)

	if jobErr.Retryable && job.RetryCount+1 < p.maxAttempts {
		if err := p.store.RequeueJob(ctx, job.ID, usage); err != nil {
			if !errors.Is(err, store.ErrNotProcessing) {
				p.logger.Error("requeueing job", "job_id", job.ID, "error", err)
			}
		} else {
			p.logger.Warn("job requeued",
				"job_id", job.ID, "attempt", job.RetryCount+1,
				"max_attempts", p.maxAttempts, "error", jobErr.Message)
		}
		p.refreshSnapshot(ctx, job.ID)
		return
	}

	if err := p.store.FailJob(ctx, job.ID, jobErr, usage); err != nil {
		if !errors.Is(err, store.ErrNotProcessing) {
			p.logger.Error("failing job", "job_id", job.ID, "error", err)
		}
	} else {
		p.logger.Warn("job failed",
			"job_id", job.ID, "kind", jobErr.Kind,
			"retryable", jobErr.Retryable, "error", jobErr.Message)
	}
	p.refreshSnapshot(ctx, job.ID)
}

// refreshSnapshot republishes the job's current row to the cache fast path.
// Best effort: the database stays authoritative.
func (p *Processor) refreshSnapshot(ctx context.Context, jobID uuid.UUID) {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := p.cache.SetJobSnapshot(ctx, jobID, payload, snapshotTTL); err != nil {
		p.logger.Debug("caching job snapshot", "job_id", jobID, "error", err)
	}
}

// progressSink persists milestones synchronously. Execution does not proceed
// past a milestone until the write lands, and a failed write aborts the run.
type progressSink struct {
	store      store.Store
	jobID      uuid.UUID
	totalSteps int
}

func (s *progressSink) Report(ctx context.Context, percent int, step string, stepsCompleted int) error {
	return s.store.UpdateJobProgress(ctx, s.jobID, percent, step, stepsCompleted, s.totalSteps)
}
