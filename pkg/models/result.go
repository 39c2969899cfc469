package models

// JobResultKind tags the variant carried by a JobResult.
type JobResultKind string

const (
	ResultCompleteAnalysis      JobResultKind = "complete_analysis"
	ResultCompactorOptimization JobResultKind = "compactor_optimization"
)

// JobResult is the closed union of skill outputs. Exactly one variant pointer
// is set, matching Kind; it is persisted as the job's result payload only on
// completion.
type JobResult struct {
	Kind JobResultKind `json:"kind"`

	CompleteAnalysis      *CompleteAnalysisResult      `json:"complete_analysis,omitempty"`
	CompactorOptimization *CompactorOptimizationResult `json:"compactor_optimization,omitempty"`
}

// CompleteAnalysisResult is the output of the complete analysis skill.
type CompleteAnalysisResult struct {
	Evaluation         Evaluation `json:"evaluation"`
	DocumentsExtracted int        `json:"documents_extracted"`
	InvoicesAnalyzed   int        `json:"invoices_analyzed"`
	HaulsAnalyzed      int        `json:"hauls_analyzed"`
	WorkbookURL        string     `json:"workbook_url,omitempty"`
	DashboardURL       string     `json:"dashboard_url,omitempty"`
}

// CompactorOptimizationResult is the output of the compactor-only skill.
type CompactorOptimizationResult struct {
	Recommendation Recommendation `json:"recommendation"`
	HaulsAnalyzed  int            `json:"hauls_analyzed"`
}

// Usage accumulates metering for external extraction calls.
type Usage struct {
	Calls     int   `json:"calls"`
	Tokens    int64 `json:"tokens"`
	CostCents int64 `json:"cost_cents"`
}

// Add merges another usage sample into u.
func (u *Usage) Add(other Usage) {
	u.Calls += other.Calls
	u.Tokens += other.Tokens
	u.CostCents += other.CostCents
}
