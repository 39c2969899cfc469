package skill

import (
	"context"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/pkg/models"
)

// ProgressSink receives progress milestones during skill execution. Report
// blocks until the milestone is durably persisted; callers must abort the run
// when it returns an error, since that is how an in-flight skill observes
// cancellation.
type ProgressSink interface {
	Report(ctx context.Context, percent int, step string, stepsCompleted int) error
}

// ExecContext carries the job-scoped inputs a skill executes against. All
// domain records are loaded before execution starts; skills that extract new
// records persist them and work on the merged view.
type ExecContext struct {
	Job      *models.Job
	Property models.Property
	UserID   uuid.UUID

	Invoices []models.Invoice
	Hauls    []models.HaulRecord
	// Documents still awaiting extraction. Empty for skills that only
	// operate on already-structured data.
	Documents []*models.Document
}

// Skill is one executable analysis capability. Implementations must be
// stateless across executions and safe for concurrent use.
type Skill interface {
	// Name returns the identifier the registry and job types key on.
	Name() string
	// TotalSteps returns how many progress milestones Execute reports.
	TotalSteps() int
	// Validate checks the inputs before any side effects. A non-nil error
	// fails the job without retry.
	Validate(ec ExecContext) error
	// Execute runs the skill. Usage is returned even on error so metering
	// survives failed attempts.
	Execute(ctx context.Context, ec ExecContext, sink ProgressSink) (*models.JobResult, models.Usage, error)
}
