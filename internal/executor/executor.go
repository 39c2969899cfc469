package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/internal/skill"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

// jobTypeSkills maps job types to the skill that executes them. Reanalysis
// reuses the complete analysis skill against already-structured records; the
// executor simply skips loading pending documents for it.
var jobTypeSkills = map[string]string{
	models.JobTypeCompleteAnalysis:      models.JobTypeCompleteAnalysis,
	models.JobTypeCompactorOptimization: models.JobTypeCompactorOptimization,
	models.JobTypeReanalysis:            models.JobTypeCompleteAnalysis,
}

// Executor resolves a job to a skill, assembles its execution context, and
// runs it. It owns error normalization: whatever a skill throws leaves here
// as a *models.JobError, except progress-write failures which pass through
// untouched so the caller can distinguish cancellation.
type Executor struct {
	store    store.Store
	registry *skill.Registry
	resolver SessionResolver
	logger   *slog.Logger
}

func New(s store.Store, registry *skill.Registry, resolver SessionResolver, logger *slog.Logger) *Executor {
	return &Executor{store: s, registry: registry, resolver: resolver, logger: logger}
}

// DefaultUserResolver resolves the session identity to the seeded default
// user.
type DefaultUserResolver struct {
	Store store.Store
}

func (r DefaultUserResolver) ResolveSessionUser(ctx context.Context) (uuid.UUID, error) {
	user, err := r.Store.GetDefaultUser(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving session user: %w", err)
	}
	return user.ID, nil
}

// TotalSteps returns the milestone count of the skill behind a job type, or
// zero when the type is unknown.
func (e *Executor) TotalSteps(jobType string) int {
	name, ok := jobTypeSkills[jobType]
	if !ok {
		return 0
	}
	sk, err := e.registry.Get(name)
	if err != nil {
		return 0
	}
	return sk.TotalSteps()
}

// Execute runs one job end to end and returns its result. Usage is returned
// even on failure so the caller can meter failed attempts.
func (e *Executor) Execute(ctx context.Context, job *models.Job, identity Identity, sink skill.ProgressSink) (result *models.JobResult, usage models.Usage, err error) {
	// A panicking skill must fail its own job, never the worker. Panics are
	// treated as bugs: execution errors that do not retry.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("skill panicked", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			result = nil
			err = &models.JobError{
				Kind:    models.ErrKindExecution,
				Message: fmt.Sprintf("internal fault executing %s", job.JobType),
			}
		}
	}()

	skillName, ok := jobTypeSkills[job.JobType]
	if !ok {
		return nil, models.Usage{}, models.NewConfigurationError("unknown job type %q", job.JobType)
	}
	sk, err := e.registry.Get(skillName)
	if err != nil {
		return nil, models.Usage{}, err
	}

	userID, err := identity.Resolve(ctx, e.resolver)
	if err != nil {
		return nil, models.Usage{}, Normalize(err)
	}

	ec, err := e.loadContext(ctx, job, userID)
	if err != nil {
		return nil, models.Usage{}, Normalize(err)
	}

	if err := sk.Validate(ec); err != nil {
		return nil, models.Usage{}, Normalize(err)
	}

	result, usage, err = sk.Execute(ctx, ec, sink)
	if err != nil {
		if errors.Is(err, store.ErrNotProcessing) {
			return nil, usage, err
		}
		return nil, usage, Normalize(err)
	}
	return result, usage, nil
}

// loadContext assembles the execution context, loading the property and its
// domain records concurrently. Pending documents are loaded only for job
// types that extract.
func (e *Executor) loadContext(ctx context.Context, job *models.Job, userID uuid.UUID) (skill.ExecContext, error) {
	ec := skill.ExecContext{Job: job, UserID: userID}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		prop, err := e.store.GetProperty(ctx, job.PropertyID)
		if err != nil {
			record(fmt.Errorf("loading property %s: %w", job.PropertyID, err))
			return
		}
		mu.Lock()
		ec.Property = *prop
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		invoices, err := e.store.ListInvoices(ctx, job.PropertyID)
		if err != nil {
			record(fmt.Errorf("loading invoices: %w", err))
			return
		}
		mu.Lock()
		ec.Invoices = derefInvoices(invoices)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		hauls, err := e.store.ListHaulRecords(ctx, job.PropertyID)
		if err != nil {
			record(fmt.Errorf("loading haul records: %w", err))
			return
		}
		mu.Lock()
		ec.Hauls = derefHauls(hauls)
		mu.Unlock()
	}()

	if job.JobType == models.JobTypeCompleteAnalysis {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := e.store.ListPendingDocuments(ctx, job.PropertyID)
			if err != nil {
				record(fmt.Errorf("loading pending documents: %w", err))
				return
			}
			mu.Lock()
			ec.Documents = docs
			mu.Unlock()
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return skill.ExecContext{}, firstErr
	}
	return ec, nil
}

// Normalize collapses any error into the closed JobError taxonomy.
func Normalize(err error) *models.JobError {
	var jobErr *models.JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}

	if errors.Is(err, store.ErrNotFound) {
		return models.NewNotFoundError("%s", err.Error())
	}
	// Everything else — provider faults, report faults, unexpected errors —
	// is an execution failure and eligible for retry.
	return models.NewExecutionError("%s", err.Error())
}

func derefInvoices(in []*models.Invoice) []models.Invoice {
	out := make([]models.Invoice, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func derefHauls(in []*models.HaulRecord) []models.HaulRecord {
	out := make([]models.HaulRecord, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}
