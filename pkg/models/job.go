package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

const (
	JobTypeCompleteAnalysis      = "complete_analysis"
	JobTypeCompactorOptimization = "compactor_optimization"
	JobTypeReanalysis            = "reanalysis"
)

// Job is a durable, trackable unit of asynchronous analysis work. The API
// returns a job id on POST; the client polls until status is terminal.
// Mutation happens exclusively through the job processor's conditional
// transitions: pending -> processing -> completed|failed, with requeue back
// to pending on retryable failures and cancellation from pending|processing.
type Job struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	PropertyID uuid.UUID `db:"property_id" json:"property_id"`
	UserID     uuid.UUID `db:"user_id"     json:"user_id"`
	JobType    string    `db:"job_type"    json:"job_type"`
	Status     string    `db:"status"      json:"status"`

	ProgressPercent int    `db:"progress_percent" json:"progress_percent"`
	CurrentStep     string `db:"current_step"     json:"current_step"`
	StepsCompleted  int    `db:"steps_completed"  json:"steps_completed"`
	TotalSteps      int    `db:"total_steps"      json:"total_steps"`
	RetryCount      int    `db:"retry_count"      json:"retry_count"`

	// Metering for external extraction calls made during execution.
	ExtractionCalls     int   `db:"extraction_calls"      json:"extraction_calls"`
	ExtractionTokens    int64 `db:"extraction_tokens"     json:"extraction_tokens"`
	ExtractionCostCents int64 `db:"extraction_cost_cents" json:"extraction_cost_cents"`

	Result *JobResult `db:"result" json:"result,omitempty"`
	Error  *JobError  `db:"error"  json:"error,omitempty"`

	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	StartedAt   *time.Time `db:"started_at"   json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

// Terminal reports whether the job has reached a state that permits no
// further transitions.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ValidJobType reports whether t is one of the job types the executor can
// dispatch.
func ValidJobType(t string) bool {
	switch t {
	case JobTypeCompleteAnalysis, JobTypeCompactorOptimization, JobTypeReanalysis:
		return true
	}
	return false
}
