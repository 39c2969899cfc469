package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrNotProcessing is returned by job transitions that require the row to be
// in processing state and found it elsewhere — typically because an external
// cancel landed first. Callers treat it as "stop pressing forward".
var ErrNotProcessing = errors.New("job is not processing")

// ErrNotCancellable is returned when a cancel request reaches a job that is
// already terminal.
var ErrNotCancellable = errors.New("job is not cancellable")

// Store is the data access interface. All database operations go through
// here. Job lifecycle methods are each a single conditional write so that
// racing workers cannot apply a transition twice.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetDefaultUser(ctx context.Context) (*models.User, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListInvoices(ctx context.Context, propertyID uuid.UUID) ([]*models.Invoice, error)
	ListHaulRecords(ctx context.Context, propertyID uuid.UUID) ([]*models.HaulRecord, error)
	ListPendingDocuments(ctx context.Context, propertyID uuid.UUID) ([]*models.Document, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	CreateHaulRecords(ctx context.Context, hauls []*models.HaulRecord) error
	MarkDocumentExtracted(ctx context.Context, id uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// ListPendingJobs returns up to limit pending jobs, oldest created
	// first, so the queue drains fairly.
	ListPendingJobs(ctx context.Context, limit int) ([]*models.Job, error)
	// ClaimJob moves a job from pending to processing. Exactly one of any
	// number of concurrent claimants succeeds; the rest get false.
	ClaimJob(ctx context.Context, id uuid.UUID) (bool, error)
	// UpdateJobProgress persists (percent, step) for a processing job.
	// Progress never decreases within an attempt. Returns ErrNotProcessing
	// when the job has been cancelled or otherwise left processing.
	UpdateJobProgress(ctx context.Context, id uuid.UUID, percent int, step string, stepsCompleted, totalSteps int) error
	CompleteJob(ctx context.Context, id uuid.UUID, result *models.JobResult, usage models.Usage) error
	FailJob(ctx context.Context, id uuid.UUID, jobErr *models.JobError, usage models.Usage) error
	// RequeueJob returns a processing job to pending for another attempt,
	// bumping retry_count and resetting progress to zero.
	RequeueJob(ctx context.Context, id uuid.UUID, usage models.Usage) error
	CancelJob(ctx context.Context, id uuid.UUID) error
	// ListStaleJobs returns processing jobs with no update since the
	// cutoff. A monitoring signal only — never an automatic transition.
	ListStaleJobs(ctx context.Context, updatedBefore time.Time) ([]*models.Job, error)
}
