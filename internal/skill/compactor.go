package skill

import (
	"context"

	"github.com/wastewise/wastewise/internal/engine"
	"github.com/wastewise/wastewise/pkg/models"
)

// CompactorOptimizationSkill evaluates only the compactor monitoring rule,
// for properties that already have structured haul data. No extraction, no
// report rendering.
type CompactorOptimizationSkill struct{}

func NewCompactorOptimizationSkill() *CompactorOptimizationSkill {
	return &CompactorOptimizationSkill{}
}

func (s *CompactorOptimizationSkill) Name() string { return models.JobTypeCompactorOptimization }

func (s *CompactorOptimizationSkill) TotalSteps() int { return 2 }

func (s *CompactorOptimizationSkill) Validate(ec ExecContext) error {
	if !ec.Property.HasCompactor {
		return models.NewValidationError("property %s has no compactor", ec.Property.ID)
	}
	if len(ec.Hauls) < 2 {
		return models.NewValidationError("compactor optimization requires at least 2 haul records, have %d", len(ec.Hauls))
	}
	if ec.Property.CostPerHaul <= 0 {
		return models.NewValidationError("property %s has no cost per haul configured", ec.Property.ID)
	}
	return nil
}

func (s *CompactorOptimizationSkill) Execute(ctx context.Context, ec ExecContext, sink ProgressSink) (*models.JobResult, models.Usage, error) {
	if err := sink.Report(ctx, 30, "loading_haul_data", 1); err != nil {
		return nil, models.Usage{}, err
	}

	rec := engine.EvaluateCompactorMonitoring(ec.Hauls, ec.Property.CostPerHaul)

	if err := sink.Report(ctx, 80, "running_analysis", 2); err != nil {
		return nil, models.Usage{}, err
	}

	result := &models.JobResult{
		Kind: models.ResultCompactorOptimization,
		CompactorOptimization: &models.CompactorOptimizationResult{
			Recommendation: rec,
			HaulsAnalyzed:  len(ec.Hauls),
		},
	}
	return result, models.Usage{}, nil
}

var _ Skill = (*CompactorOptimizationSkill)(nil)
