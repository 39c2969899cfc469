package engine

import (
	"sort"

	"github.com/wastewise/wastewise/pkg/models"
)

// EvaluationInput is everything one engine run needs. All fields are
// already-extracted domain records; the engine performs no I/O.
type EvaluationInput struct {
	Property models.Property
	Invoices []models.Invoice
	Hauls    []models.HaulRecord
}

// Evaluate runs the full rule set for one property: lease-up gate first, then
// the three service-optimization rules, then prioritization and the service
// level assessment. When the lease-up gate fires, no recommendation objects
// are produced at all for the run.
func Evaluate(in EvaluationInput) models.Evaluation {
	density := actualDensity(in)
	benchmarkMin := UncompactedMinYPD
	if in.Property.HasCompactor {
		benchmarkMin = CompactedMinYPD
	}

	eval := models.Evaluation{
		LeaseUp:           DetectLeaseUp(density, benchmarkMin),
		ServiceAssessment: AssessServiceLevel(density, in.Property.HasCompactor),
		Recommendations:   []models.Recommendation{},
	}

	if eval.LeaseUp.IsLeaseUp {
		return eval
	}

	recs := make([]models.Recommendation, 0, 3)
	if in.Property.HasCompactor && len(in.Hauls) > 0 {
		recs = append(recs, EvaluateCompactorMonitoring(in.Hauls, in.Property.CostPerHaul))
	}
	if len(in.Invoices) > 0 {
		annualContam, annualSpend := annualizedCharges(in.Invoices)
		recs = append(recs, EvaluateContaminationReduction(annualContam, annualSpend))
		recs = append(recs, EvaluateBulkSubscription(monthlyBulkSeries(in.Invoices)))
	}

	eval.Recommendations = Prioritize(recs)
	for _, r := range eval.Recommendations {
		eval.TotalAnnualSavings += r.NetAnnualSavings()
	}
	return eval
}

// Prioritize ranks recommended entries by net annual savings descending,
// assigning priority 1..n; entries that did not fire keep priority 0 and sort
// after all recommended ones. The sort is stable so identical savings keep
// input order and reruns stay byte-identical.
func Prioritize(recs []models.Recommendation) []models.Recommendation {
	ranked := make([]models.Recommendation, len(recs))
	copy(ranked, recs)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Recommended != ranked[j].Recommended {
			return ranked[i].Recommended
		}
		return ranked[i].NetAnnualSavings() > ranked[j].NetAnnualSavings()
	})

	rank := 0
	for i := range ranked {
		if ranked[i].Recommended {
			rank++
			ranked[i].Priority = rank
		} else {
			ranked[i].Priority = 0
		}
	}
	return ranked
}

// actualDensity annualizes haul tonnage over the observation window and
// converts it to weekly yards-per-door.
func actualDensity(in EvaluationInput) float64 {
	if len(in.Hauls) < 2 || in.Property.Units <= 0 {
		return 0
	}

	sorted := make([]models.HaulRecord, len(in.Hauls))
	copy(sorted, in.Hauls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HaulDate.Before(sorted[j].HaulDate)
	})

	windowDays := sorted[len(sorted)-1].HaulDate.Sub(sorted[0].HaulDate).Hours() / 24
	if windowDays <= 0 {
		return 0
	}

	var totalTons float64
	for _, h := range sorted {
		totalTons += h.Tons
	}
	annualTons := totalTons * DaysPerYear / windowDays
	return WeeklyYardsPerDoor(annualTons, in.Property.Units)
}

// annualizedCharges converts per-month invoice totals into annual-rate
// contamination charges and total spend.
func annualizedCharges(invoices []models.Invoice) (contamination, spend float64) {
	var totalContam, totalSpend float64
	for i := range invoices {
		totalContam += invoices[i].Contamination
		totalSpend += invoices[i].Total()
	}
	months := float64(len(invoices))
	return totalContam / months * MonthsPerYear, totalSpend / months * MonthsPerYear
}

func monthlyBulkSeries(invoices []models.Invoice) []float64 {
	series := make([]float64, len(invoices))
	for i := range invoices {
		series[i] = invoices[i].Bulk
	}
	return series
}
