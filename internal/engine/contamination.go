package engine

import "github.com/wastewise/wastewise/pkg/models"

// EvaluateContaminationReduction decides whether a contamination program
// (signage, resident education, monitoring) is worth running. Inputs are
// annualized charges and spend over the same window; the rule fires when
// contamination exceeds the fixed share of total spend and models the fixed
// proportional reduction target.
func EvaluateContaminationReduction(annualContaminationCharges, annualTotalSpend float64) models.Recommendation {
	rec := models.Recommendation{
		Type:       models.RecContaminationReduction,
		Confidence: models.ConfidenceMedium,
		Contamination: &models.ContaminationBreakdown{
			ContaminationCharges: annualContaminationCharges,
			TotalSpend:           annualTotalSpend,
			RateThresholdPct:     ContaminationRateThresholdPct,
			ReductionTarget:      ContaminationReductionTarget,
		},
	}
	b := rec.Contamination

	if annualTotalSpend <= 0 {
		rec.Confidence = models.ConfidenceLow
		return rec
	}

	b.ContaminationRatePct = annualContaminationCharges / annualTotalSpend * 100
	b.ProjectedCharges = annualContaminationCharges * (1 - ContaminationReductionTarget)
	b.AnnualSavings = annualContaminationCharges * ContaminationReductionTarget

	rec.Recommended = b.ContaminationRatePct > ContaminationRateThresholdPct
	return rec
}
