package engine

import "github.com/wastewise/wastewise/pkg/models"

// EvaluateBulkSubscription decides whether flat-rate bulk pickup beats
// on-demand billing. The rule fires when the monthly average exceeds the
// threshold and switching to the subscription price is net-positive.
func EvaluateBulkSubscription(monthlyBulkCharges []float64) models.Recommendation {
	rec := models.Recommendation{
		Type:       models.RecBulkSubscription,
		Confidence: bulkConfidence(len(monthlyBulkCharges)),
		Bulk: &models.BulkBreakdown{
			MonthsObserved:    len(monthlyBulkCharges),
			MonthlyThreshold:  BulkMonthlyAvgThreshold,
			SubscriptionPrice: BulkSubscriptionMonthlyPrice,
		},
	}
	b := rec.Bulk

	if len(monthlyBulkCharges) == 0 {
		return rec
	}

	var total float64
	for _, m := range monthlyBulkCharges {
		total += m
	}
	b.AvgMonthlyBulk = total / float64(len(monthlyBulkCharges))
	b.MonthlySavings = b.AvgMonthlyBulk - BulkSubscriptionMonthlyPrice
	b.NetAnnualSavings = b.MonthlySavings * MonthsPerYear

	rec.Recommended = b.AvgMonthlyBulk > BulkMonthlyAvgThreshold && b.MonthlySavings > 0
	return rec
}

func bulkConfidence(months int) string {
	switch {
	case months >= 6:
		return models.ConfidenceHigh
	case months >= 3:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
