package engine

import (
	"sort"

	"github.com/wastewise/wastewise/pkg/models"
)

// EvaluateCompactorMonitoring decides whether installing fullness monitors on
// a compactor pays for itself. Monitors are recommended only when the average
// tons-per-haul is below the threshold AND the longest gap between
// consecutive hauls is at or under the interval cap: light hauls arriving
// frequently are the signature of premature pickups that monitors eliminate.
//
// The full numeric breakdown is populated whether or not the recommendation
// fires; every intermediate figure is part of the contract.
func EvaluateCompactorMonitoring(hauls []models.HaulRecord, costPerHaul float64) models.Recommendation {
	rec := models.Recommendation{
		Type:       models.RecCompactorMonitoring,
		Confidence: compactorConfidence(len(hauls)),
		Compactor: &models.CompactorBreakdown{
			HaulCount:         len(hauls),
			TonsThreshold:     CompactorTonsPerHaulThreshold,
			IntervalCapDays:   CompactorMaxPickupIntervalDays,
			CostPerHaul:       costPerHaul,
			TargetTonsPerHaul: CompactorTargetTonsPerHaul,
			InstallCost:       MonitorInstallCost,
			MonthlyMonitoring: MonitorMonthlyCost,
			AnnualMonitoring:  MonthsPerYear * MonitorMonthlyCost,
		},
	}
	b := rec.Compactor

	// Two data points are the minimum for an interval and a window.
	if len(hauls) < 2 || costPerHaul <= 0 {
		return rec
	}

	sorted := make([]models.HaulRecord, len(hauls))
	copy(sorted, hauls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HaulDate.Before(sorted[j].HaulDate)
	})

	var totalTons float64
	for _, h := range sorted {
		totalTons += h.Tons
	}
	b.AvgTonsPerHaul = totalTons / float64(len(sorted))

	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].HaulDate.Sub(sorted[i-1].HaulDate).Hours() / 24
		if gap > b.MaxIntervalDays {
			b.MaxIntervalDays = gap
		}
	}

	b.ObservationDays = sorted[len(sorted)-1].HaulDate.Sub(sorted[0].HaulDate).Hours() / 24
	if b.ObservationDays <= 0 {
		return rec
	}

	b.CurrentAnnualHauls = float64(len(sorted)) * DaysPerYear / b.ObservationDays
	b.CurrentAnnualCost = b.CurrentAnnualHauls * costPerHaul

	// Same annual tonnage spread over fuller hauls.
	b.OptimizedAnnualHauls = b.CurrentAnnualHauls * b.AvgTonsPerHaul / b.TargetTonsPerHaul
	b.HaulsEliminated = b.CurrentAnnualHauls - b.OptimizedAnnualHauls
	b.GrossAnnualSavings = b.HaulsEliminated * costPerHaul

	b.NetYearOneSavings = b.GrossAnnualSavings - b.InstallCost - b.AnnualMonitoring
	b.NetOngoingSavings = b.GrossAnnualSavings - b.AnnualMonitoring

	yearOneCost := b.InstallCost + b.AnnualMonitoring
	if yearOneCost > 0 {
		b.ROIPct = b.NetYearOneSavings / yearOneCost * 100
	}
	monthlyNet := b.GrossAnnualSavings/MonthsPerYear - b.MonthlyMonitoring
	if monthlyNet > 0 {
		b.PaybackMonths = b.InstallCost / monthlyNet
	}

	rec.Recommended = b.AvgTonsPerHaul < CompactorTonsPerHaulThreshold &&
		b.MaxIntervalDays <= CompactorMaxPickupIntervalDays
	return rec
}

func compactorConfidence(haulCount int) string {
	switch {
	case haulCount >= 12:
		return models.ConfidenceHigh
	case haulCount >= 6:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
