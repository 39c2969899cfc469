package skill_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wastewise/wastewise/internal/extract"
	"github.com/wastewise/wastewise/internal/report"
	"github.com/wastewise/wastewise/internal/skill"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

// fakeStore overrides just the persistence calls skills make. Everything
// else panics via the nil embedded interface, which is what we want in a
// unit test.
type fakeStore struct {
	store.Store
	invoices  []*models.Invoice
	hauls     []*models.HaulRecord
	extracted []uuid.UUID

	failInvoice error
}

func (f *fakeStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	if f.failInvoice != nil {
		return f.failInvoice
	}
	f.invoices = append(f.invoices, inv)
	return nil
}

func (f *fakeStore) CreateHaulRecords(_ context.Context, hauls []*models.HaulRecord) error {
	f.hauls = append(f.hauls, hauls...)
	return nil
}

func (f *fakeStore) MarkDocumentExtracted(_ context.Context, id uuid.UUID) error {
	f.extracted = append(f.extracted, id)
	return nil
}

// sinkRecorder records progress milestones; it can be told to fail from a
// given call onward, simulating cancellation observed at the store.
type sinkRecorder struct {
	percents []int
	steps    []string
	failFrom int // 0 = never fail
	err      error
}

func (s *sinkRecorder) Report(_ context.Context, percent int, step string, _ int) error {
	s.percents = append(s.percents, percent)
	s.steps = append(s.steps, step)
	if s.failFrom > 0 && len(s.percents) >= s.failFrom {
		return s.err
	}
	return nil
}

func compactorProperty() models.Property {
	return models.Property{
		ID:            uuid.New(),
		Name:          "Test Gardens",
		Units:         250,
		PropertyClass: models.PropertyClassGarden,
		Status:        models.PropertyStatusStabilized,
		HasCompactor:  true,
		CostPerHaul:   165,
	}
}

func lightHauls(propertyID uuid.UUID) []models.HaulRecord {
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	offsets := []int{0, 10, 18, 27, 37, 45}
	hauls := make([]models.HaulRecord, len(offsets))
	for i, off := range offsets {
		hauls[i] = models.HaulRecord{
			ID:         uuid.New(),
			PropertyID: propertyID,
			HaulDate:   base.AddDate(0, 0, off),
			Tons:       5.5,
		}
	}
	return hauls
}

func pendingDocs(propertyID uuid.UUID, n int) []*models.Document {
	docs := make([]*models.Document, n)
	for i := range docs {
		docs[i] = &models.Document{
			ID:          uuid.New(),
			PropertyID:  propertyID,
			FileName:    "invoice.pdf",
			StorageURL:  "https://docs.example.com/invoice.pdf",
			ContentType: "application/pdf",
		}
	}
	return docs
}

// --- Registry ---

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := skill.NewRegistry()
	require.NoError(t, r.Register(skill.NewCompactorOptimizationSkill()))

	s, err := r.Get(models.JobTypeCompactorOptimization)
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeCompactorOptimization, s.Name())
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := skill.NewRegistry()
	require.NoError(t, r.Register(skill.NewCompactorOptimizationSkill()))

	err := r.Register(skill.NewCompactorOptimizationSkill())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_MissingFailsClosed(t *testing.T) {
	r := skill.NewRegistry()

	_, err := r.Get("complete_analysis")
	require.Error(t, err)

	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrKindConfiguration, jobErr.Kind)
	assert.False(t, jobErr.Retryable)
}

func TestRegistry_ValidateComplete(t *testing.T) {
	r := skill.NewRegistry()
	require.NoError(t, r.Register(skill.NewCompactorOptimizationSkill()))

	assert.NoError(t, r.ValidateComplete(models.JobTypeCompactorOptimization))

	err := r.ValidateComplete(models.JobTypeCompactorOptimization, models.JobTypeCompleteAnalysis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete_analysis")
}

// --- Complete Analysis Skill ---

func TestCompleteAnalysis_HappyPath(t *testing.T) {
	fs := &fakeStore{}
	s := skill.NewCompleteAnalysisSkill(fs, extract.NewMockExtractor(), report.NoopBuilder{})

	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:       &models.Job{ID: uuid.New(), JobType: models.JobTypeCompleteAnalysis},
		Property:  prop,
		Hauls:     lightHauls(prop.ID),
		Documents: pendingDocs(prop.ID, 2),
	}
	require.NoError(t, s.Validate(ec))

	sink := &sinkRecorder{}
	result, usage, err := s.Execute(context.Background(), ec, sink)
	require.NoError(t, err)

	require.NotNil(t, result)
	assert.Equal(t, models.ResultCompleteAnalysis, result.Kind)
	require.NotNil(t, result.CompleteAnalysis)
	assert.Nil(t, result.CompactorOptimization)

	// Mock extractor yields 1 invoice and 2 hauls per document.
	assert.Equal(t, 2, result.CompleteAnalysis.DocumentsExtracted)
	assert.Equal(t, 2, result.CompleteAnalysis.InvoicesAnalyzed)
	assert.Equal(t, 6+4, result.CompleteAnalysis.HaulsAnalyzed)

	// Everything extracted was persisted and both documents marked done.
	assert.Len(t, fs.invoices, 2)
	assert.Len(t, fs.hauls, 4)
	assert.Len(t, fs.extracted, 2)

	// Usage accumulated across both extraction calls.
	assert.Equal(t, 2, usage.Calls)

	// Milestones are non-decreasing and end at the report step.
	require.NotEmpty(t, sink.percents)
	for i := 1; i < len(sink.percents); i++ {
		assert.GreaterOrEqual(t, sink.percents[i], sink.percents[i-1])
	}
	assert.Equal(t, 90, sink.percents[len(sink.percents)-1])
	assert.Equal(t, "building_reports", sink.steps[len(sink.steps)-1])
}

func TestCompleteAnalysis_NoDocumentsStillRuns(t *testing.T) {
	fs := &fakeStore{}
	s := skill.NewCompleteAnalysisSkill(fs, extract.NewMockExtractor(), report.NoopBuilder{})

	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:      &models.Job{ID: uuid.New(), JobType: models.JobTypeCompleteAnalysis},
		Property: prop,
		Hauls:    lightHauls(prop.ID),
	}
	require.NoError(t, s.Validate(ec))

	result, usage, err := s.Execute(context.Background(), ec, &sinkRecorder{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CompleteAnalysis.DocumentsExtracted)
	assert.Equal(t, 6, result.CompleteAnalysis.HaulsAnalyzed)
	assert.Equal(t, 0, usage.Calls)
}

func TestCompleteAnalysis_ValidateNoData(t *testing.T) {
	s := skill.NewCompleteAnalysisSkill(&fakeStore{}, extract.NewMockExtractor(), report.NoopBuilder{})

	err := s.Validate(skill.ExecContext{Property: compactorProperty()})
	require.Error(t, err)

	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrKindValidation, jobErr.Kind)
	assert.False(t, jobErr.Retryable)
}

func TestCompleteAnalysis_ExtractionFailure(t *testing.T) {
	fs := &fakeStore{}
	s := skill.NewCompleteAnalysisSkill(fs, extract.NewFailingExtractor(extract.ErrProviderUnavailable), report.NoopBuilder{})

	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:       &models.Job{ID: uuid.New()},
		Property:  prop,
		Documents: pendingDocs(prop.ID, 1),
	}

	result, _, err := s.Execute(context.Background(), ec, &sinkRecorder{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, extract.ErrProviderUnavailable)

	// Nothing persisted, document not marked.
	assert.Empty(t, fs.invoices)
	assert.Empty(t, fs.extracted)
}

func TestCompleteAnalysis_AbortsWhenSinkFails(t *testing.T) {
	fs := &fakeStore{}
	s := skill.NewCompleteAnalysisSkill(fs, extract.NewMockExtractor(), report.NoopBuilder{})

	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:       &models.Job{ID: uuid.New()},
		Property:  prop,
		Documents: pendingDocs(prop.ID, 1),
	}

	sink := &sinkRecorder{failFrom: 1, err: store.ErrNotProcessing}
	result, _, err := s.Execute(context.Background(), ec, sink)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, store.ErrNotProcessing)
}

func TestCompleteAnalysis_ReportFailure(t *testing.T) {
	fs := &fakeStore{}
	s := skill.NewCompleteAnalysisSkill(fs, extract.NewMockExtractor(), failingBuilder{})

	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:      &models.Job{ID: uuid.New()},
		Property: prop,
		Hauls:    lightHauls(prop.ID),
	}

	result, _, err := s.Execute(context.Background(), ec, &sinkRecorder{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, report.ErrReportUnreachable)
}

type failingBuilder struct{}

func (failingBuilder) BuildWorkbook(context.Context, report.BuildRequest) (string, error) {
	return "", report.ErrReportUnreachable
}

func (failingBuilder) BuildDashboard(context.Context, report.BuildRequest) (string, error) {
	return "", report.ErrReportUnreachable
}

// --- Compactor Optimization Skill ---

func TestCompactorOptimization_HappyPath(t *testing.T) {
	s := skill.NewCompactorOptimizationSkill()
	prop := compactorProperty()
	ec := skill.ExecContext{
		Job:      &models.Job{ID: uuid.New(), JobType: models.JobTypeCompactorOptimization},
		Property: prop,
		Hauls:    lightHauls(prop.ID),
	}
	require.NoError(t, s.Validate(ec))

	sink := &sinkRecorder{}
	result, usage, err := s.Execute(context.Background(), ec, sink)
	require.NoError(t, err)

	assert.Equal(t, models.ResultCompactorOptimization, result.Kind)
	require.NotNil(t, result.CompactorOptimization)
	assert.Nil(t, result.CompleteAnalysis)
	assert.Equal(t, 6, result.CompactorOptimization.HaulsAnalyzed)

	rec := result.CompactorOptimization.Recommendation
	assert.Equal(t, models.RecCompactorMonitoring, rec.Type)
	assert.True(t, rec.Recommended, "light hauls at short intervals should recommend monitoring")

	assert.Equal(t, models.Usage{}, usage)
	assert.Equal(t, []int{30, 80}, sink.percents)
}

func TestCompactorOptimization_ValidateNoCompactor(t *testing.T) {
	s := skill.NewCompactorOptimizationSkill()
	prop := compactorProperty()
	prop.HasCompactor = false

	err := s.Validate(skill.ExecContext{Property: prop, Hauls: lightHauls(prop.ID)})
	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrKindValidation, jobErr.Kind)
}

func TestCompactorOptimization_ValidateTooFewHauls(t *testing.T) {
	s := skill.NewCompactorOptimizationSkill()
	prop := compactorProperty()

	err := s.Validate(skill.ExecContext{Property: prop, Hauls: lightHauls(prop.ID)[:1]})
	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrKindValidation, jobErr.Kind)
}

func TestCompactorOptimization_ValidateNoHaulCost(t *testing.T) {
	s := skill.NewCompactorOptimizationSkill()
	prop := compactorProperty()
	prop.CostPerHaul = 0

	err := s.Validate(skill.ExecContext{Property: prop, Hauls: lightHauls(prop.ID)})
	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrKindValidation, jobErr.Kind)
}

var _ report.Builder = failingBuilder{}
