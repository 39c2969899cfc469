package skill

import (
	"context"
	"fmt"

	"github.com/wastewise/wastewise/internal/engine"
	"github.com/wastewise/wastewise/internal/report"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/pkg/models"
)

// CompleteAnalysisSkill runs the full pipeline for a property: extract any
// pending documents, aggregate the structured records, run the calculation
// engine, and render client deliverables.
type CompleteAnalysisSkill struct {
	store     store.Store
	extractor models.DocumentExtractor
	reports   report.Builder
}

func NewCompleteAnalysisSkill(s store.Store, extractor models.DocumentExtractor, reports report.Builder) *CompleteAnalysisSkill {
	return &CompleteAnalysisSkill{store: s, extractor: extractor, reports: reports}
}

func (s *CompleteAnalysisSkill) Name() string { return models.JobTypeCompleteAnalysis }

func (s *CompleteAnalysisSkill) TotalSteps() int { return 4 }

func (s *CompleteAnalysisSkill) Validate(ec ExecContext) error {
	if ec.Property.Units <= 0 {
		return models.NewValidationError("property %s has no unit count", ec.Property.ID)
	}
	if len(ec.Documents) == 0 && len(ec.Invoices) == 0 && len(ec.Hauls) == 0 {
		return models.NewValidationError("property %s has no documents, invoices, or haul records to analyze", ec.Property.ID)
	}
	return nil
}

func (s *CompleteAnalysisSkill) Execute(ctx context.Context, ec ExecContext, sink ProgressSink) (*models.JobResult, models.Usage, error) {
	var usage models.Usage

	invoices := ec.Invoices
	hauls := ec.Hauls

	for i, doc := range ec.Documents {
		extracted, extractUsage, err := s.extractDocument(ctx, ec, doc)
		usage.Add(extractUsage)
		if err != nil {
			return nil, usage, err
		}
		invoices = append(invoices, extracted.Invoices...)
		hauls = append(hauls, extracted.Hauls...)

		// Spread extraction progress across the first 40%.
		pct := 10 + 30*(i+1)/len(ec.Documents)
		if err := sink.Report(ctx, pct, "extracting_documents", 0); err != nil {
			return nil, usage, err
		}
	}
	if err := sink.Report(ctx, 40, "extracting_documents", 1); err != nil {
		return nil, usage, err
	}

	if err := sink.Report(ctx, 55, "aggregating_data", 2); err != nil {
		return nil, usage, err
	}

	evaluation := engine.Evaluate(engine.EvaluationInput{
		Property: ec.Property,
		Invoices: invoices,
		Hauls:    hauls,
	})
	if err := sink.Report(ctx, 70, "running_analysis", 3); err != nil {
		return nil, usage, err
	}

	buildReq := report.BuildRequest{Property: ec.Property, Evaluation: evaluation}
	workbookURL, err := s.reports.BuildWorkbook(ctx, buildReq)
	if err != nil {
		return nil, usage, fmt.Errorf("building workbook: %w", err)
	}
	dashboardURL, err := s.reports.BuildDashboard(ctx, buildReq)
	if err != nil {
		return nil, usage, fmt.Errorf("building dashboard: %w", err)
	}
	if err := sink.Report(ctx, 90, "building_reports", 4); err != nil {
		return nil, usage, err
	}

	result := &models.JobResult{
		Kind: models.ResultCompleteAnalysis,
		CompleteAnalysis: &models.CompleteAnalysisResult{
			Evaluation:         evaluation,
			DocumentsExtracted: len(ec.Documents),
			InvoicesAnalyzed:   len(invoices),
			HaulsAnalyzed:      len(hauls),
			WorkbookURL:        workbookURL,
			DashboardURL:       dashboardURL,
		},
	}
	return result, usage, nil
}

// extractDocument runs one document through the extractor and persists what
// came out before marking the document done, so a crash between the two never
// loses extracted records.
func (s *CompleteAnalysisSkill) extractDocument(ctx context.Context, ec ExecContext, doc *models.Document) (models.ExtractionResult, models.Usage, error) {
	extracted, err := s.extractor.Extract(ctx, models.ExtractionRequest{
		Document: *doc,
		Property: ec.Property,
	})
	if err != nil {
		return models.ExtractionResult{}, extracted.Usage, fmt.Errorf("extracting document %s: %w", doc.ID, err)
	}

	for i := range extracted.Invoices {
		if err := s.store.CreateInvoice(ctx, &extracted.Invoices[i]); err != nil {
			return models.ExtractionResult{}, extracted.Usage, fmt.Errorf("persisting invoice: %w", err)
		}
	}
	haulPtrs := make([]*models.HaulRecord, len(extracted.Hauls))
	for i := range extracted.Hauls {
		haulPtrs[i] = &extracted.Hauls[i]
	}
	if err := s.store.CreateHaulRecords(ctx, haulPtrs); err != nil {
		return models.ExtractionResult{}, extracted.Usage, fmt.Errorf("persisting haul records: %w", err)
	}
	if err := s.store.MarkDocumentExtracted(ctx, doc.ID); err != nil {
		return models.ExtractionResult{}, extracted.Usage, fmt.Errorf("marking document extracted: %w", err)
	}

	return extracted, extracted.Usage, nil
}

var _ Skill = (*CompleteAnalysisSkill)(nil)
