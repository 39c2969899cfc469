package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wastewise/wastewise/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE name = 'default' LIMIT 1`,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Properties and domain records ---

func (s *PostgresStore) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, units, property_class, occupancy_pct, status, has_compactor, cost_per_haul, created_at, updated_at
		 FROM properties WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Units, &p.PropertyClass, &p.OccupancyPct, &p.Status,
		&p.HasCompactor, &p.CostPerHaul, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListInvoices(ctx context.Context, propertyID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, property_id, month, invoice_number, disposal, pickup_fees, rental, contamination, bulk, other, created_at
		 FROM invoices WHERE property_id = $1 ORDER BY month, created_at`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.PropertyID, &inv.Month, &inv.InvoiceNumber,
			&inv.Disposal, &inv.PickupFees, &inv.Rental, &inv.Contamination,
			&inv.Bulk, &inv.Other, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}

func (s *PostgresStore) ListHaulRecords(ctx context.Context, propertyID uuid.UUID) ([]*models.HaulRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, property_id, haul_date, tons, created_at
		 FROM haul_records WHERE property_id = $1 ORDER BY haul_date`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list haul records: %w", err)
	}
	defer rows.Close()

	var hauls []*models.HaulRecord
	for rows.Next() {
		var h models.HaulRecord
		if err := rows.Scan(&h.ID, &h.PropertyID, &h.HaulDate, &h.Tons, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan haul record: %w", err)
		}
		hauls = append(hauls, &h)
	}
	return hauls, rows.Err()
}

func (s *PostgresStore) ListPendingDocuments(ctx context.Context, propertyID uuid.UUID) ([]*models.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, property_id, file_name, storage_url, content_type, extracted_at, created_at
		 FROM documents WHERE property_id = $1 AND extracted_at IS NULL ORDER BY created_at`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.PropertyID, &d.FileName, &d.StorageURL,
			&d.ContentType, &d.ExtractedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invoices (id, property_id, month, invoice_number, disposal, pickup_fees, rental, contamination, bulk, other, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		invoice.ID, invoice.PropertyID, invoice.Month, invoice.InvoiceNumber,
		invoice.Disposal, invoice.PickupFees, invoice.Rental, invoice.Contamination,
		invoice.Bulk, invoice.Other, invoice.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateHaulRecords(ctx context.Context, hauls []*models.HaulRecord) error {
	if len(hauls) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, h := range hauls {
		batch.Queue(
			`INSERT INTO haul_records (id, property_id, haul_date, tons, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			h.ID, h.PropertyID, h.HaulDate, h.Tons, h.CreatedAt)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range hauls {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("create haul records: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) MarkDocumentExtracted(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET extracted_at = NOW() WHERE id = $1 AND extracted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark document extracted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, property_id, user_id, job_type, status, progress_percent, current_step,
	steps_completed, total_steps, retry_count, extraction_calls, extraction_tokens, extraction_cost_cents,
	result, error, created_at, started_at, completed_at, cancelled_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	var resultRaw, errorRaw []byte
	err := row.Scan(&j.ID, &j.PropertyID, &j.UserID, &j.JobType, &j.Status,
		&j.ProgressPercent, &j.CurrentStep, &j.StepsCompleted, &j.TotalSteps, &j.RetryCount,
		&j.ExtractionCalls, &j.ExtractionTokens, &j.ExtractionCostCents,
		&resultRaw, &errorRaw,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.CancelledAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(resultRaw) > 0 {
		j.Result = &models.JobResult{}
		if err := json.Unmarshal(resultRaw, j.Result); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
	}
	if len(errorRaw) > 0 {
		j.Error = &models.JobError{}
		if err := json.Unmarshal(errorRaw, j.Error); err != nil {
			return nil, fmt.Errorf("decode job error: %w", err)
		}
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, property_id, user_id, job_type, status, total_steps, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.PropertyID, job.UserID, job.JobType, job.Status, job.TotalSteps,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListPendingJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		models.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob is the concurrency-safety boundary: a single conditional write so
// two workers racing on the same job cannot both succeed. started_at is set
// on the first successful claim only and survives requeues.
func (s *PostgresStore) ClaimJob(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, started_at = COALESCE(started_at, NOW()), updated_at = NOW()
		 WHERE id = $1 AND status = $3`,
		id, models.JobStatusProcessing, models.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateJobProgress persists a progress milestone. GREATEST keeps the
// percentage non-decreasing within an attempt even if callbacks land out of
// order. A zero row count means the job left processing underneath us.
func (s *PostgresStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, percent int, step string, stepsCompleted, totalSteps int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET progress_percent = GREATEST(progress_percent, $2),
		     current_step = $3, steps_completed = $4, total_steps = $5, updated_at = NOW()
		 WHERE id = $1 AND status = $6`,
		id, percent, step, stepsCompleted, totalSteps, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID, result *models.JobResult, usage models.Usage) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode job result: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, progress_percent = 100, result = $3,
		     extraction_calls = extraction_calls + $4,
		     extraction_tokens = extraction_tokens + $5,
		     extraction_cost_cents = extraction_cost_cents + $6,
		     completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $7`,
		id, models.JobStatusCompleted, payload,
		usage.Calls, usage.Tokens, usage.CostCents, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id uuid.UUID, jobErr *models.JobError, usage models.Usage) error {
	payload, err := json.Marshal(jobErr)
	if err != nil {
		return fmt.Errorf("encode job error: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, error = $3,
		     extraction_calls = extraction_calls + $4,
		     extraction_tokens = extraction_tokens + $5,
		     extraction_cost_cents = extraction_cost_cents + $6,
		     completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $7`,
		id, models.JobStatusFailed, payload,
		usage.Calls, usage.Tokens, usage.CostCents, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

func (s *PostgresStore) RequeueJob(ctx context.Context, id uuid.UUID, usage models.Usage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, retry_count = retry_count + 1,
		     progress_percent = 0, current_step = '', steps_completed = 0,
		     extraction_calls = extraction_calls + $3,
		     extraction_tokens = extraction_tokens + $4,
		     extraction_cost_cents = extraction_cost_cents + $5,
		     updated_at = NOW()
		 WHERE id = $1 AND status = $6`,
		id, models.JobStatusPending,
		usage.Calls, usage.Tokens, usage.CostCents, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

func (s *PostgresStore) CancelJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, cancelled_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status IN ($3, $4)`,
		id, models.JobStatusCancelled, models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotCancellable
	}
	return nil
}

func (s *PostgresStore) ListStaleJobs(ctx context.Context, updatedBefore time.Time) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC`,
		models.JobStatusProcessing, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
