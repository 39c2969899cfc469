package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/wastewise/wastewise/internal/api/middleware"
	"github.com/wastewise/wastewise/internal/api/response"
	"github.com/wastewise/wastewise/internal/cache"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

const snapshotTTL = 30 * time.Minute

// StepPlanner reports how many milestones the pipeline behind a job type
// emits, so a freshly created job can carry total_steps from the start.
type StepPlanner interface {
	TotalSteps(jobType string) int
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
func NewHealthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok", "cache": "ok"}
		degraded := false
		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
			degraded = true
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
			degraded = true
		}
		if degraded {
			response.Error(w, http.StatusServiceUnavailable,
				"DEGRADED", "One or more services degraded", checks)
			return
		}
		response.JSON(w, map[string]string{"status": "ok"})
	}
}

// NewCreateAnalysisHandler returns an http.HandlerFunc for
// POST /api/v1/properties/{propertyID}/analyses. The job is created pending
// and picked up by the background worker; the client polls the returned id.
func NewCreateAnalysisHandler(s store.Store, steps StepPlanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		propertyID, err := uuid.Parse(chi.URLParam(r, "propertyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_PROPERTY_ID", "Invalid property ID format", nil)
			return
		}

		var req struct {
			JobType string `json:"job_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		jobType := req.JobType
		if jobType == "" {
			jobType = models.JobTypeCompleteAnalysis
		}
		if !models.ValidJobType(jobType) {
			response.Error(w, http.StatusBadRequest,
				"INVALID_JOB_TYPE", "job_type must be one of complete_analysis, compactor_optimization, reanalysis", nil)
			return
		}

		if _, err := s.GetProperty(r.Context(), propertyID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "PROPERTY_NOT_FOUND", "Property not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load property", nil)
			return
		}

		now := time.Now().UTC()
		job := &models.Job{
			ID:         uuid.New(),
			PropertyID: propertyID,
			UserID:     userID,
			JobType:    jobType,
			Status:     models.JobStatusPending,
			TotalSteps: steps.TotalSteps(jobType),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.CreateJob(r.Context(), job); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewPollJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// The cache snapshot is tried first; the database remains authoritative.
func NewPollJobHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID format", nil)
			return
		}

		if snapshot, ok, err := c.GetJobSnapshot(r.Context(), jobID); err == nil && ok {
			response.JSON(w, json.RawMessage(snapshot))
			return
		}

		job, err := s.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/cancel. Cancellation is cooperative: a processing
// job notices at its next progress write and stops without a terminal write.
func NewCancelJobHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID format", nil)
			return
		}

		if _, err := s.GetJob(r.Context(), jobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		if err := s.CancelJob(r.Context(), jobID); err != nil {
			if errors.Is(err, store.ErrNotCancellable) {
				response.Error(w, http.StatusConflict,
					"JOB_NOT_CANCELLABLE", "Job has already reached a terminal state", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel job", nil)
			return
		}

		job, err := s.GetJob(r.Context(), jobID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		// Refresh the poll fast path so a cancelled status is visible
		// immediately.
		if payload, err := json.Marshal(job); err == nil {
			c.SetJobSnapshot(r.Context(), jobID, payload, snapshotTTL)
		}

		response.JSON(w, job)
	}
}
