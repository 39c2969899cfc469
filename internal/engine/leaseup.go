package engine

import "github.com/wastewise/wastewise/pkg/models"

// DetectLeaseUp flags a property whose waste density is so far below the
// class benchmark that the shortfall must be occupancy-driven. The flag is a
// gate: callers must suppress service-optimization recommendations when it is
// set, because a filling building is not an inefficient one.
func DetectLeaseUp(actualYardsPerDoorWeek, benchmarkMinimum float64) models.LeaseUpStatus {
	status := models.LeaseUpStatus{
		ActualYardsPerDoorWeek: actualYardsPerDoorWeek,
		BenchmarkMinimum:       benchmarkMinimum,
		ShortfallThresholdPct:  LeaseUpShortfallThresholdPct,
	}
	if benchmarkMinimum <= 0 {
		return status
	}

	status.ShortfallPct = (benchmarkMinimum - actualYardsPerDoorWeek) / benchmarkMinimum * 100
	status.IsLeaseUp = status.ShortfallPct > LeaseUpShortfallThresholdPct
	return status
}

// ProjectLeaseUpBudget scales a lease-up property's current waste cost to a
// target occupancy for budgeting. Returns the current cost unchanged when the
// current occupancy is not a usable divisor.
func ProjectLeaseUpBudget(currentCost, currentOccupancyPct, targetOccupancyPct float64) float64 {
	if currentOccupancyPct <= 0 {
		return currentCost
	}
	return currentCost / currentOccupancyPct * targetOccupancyPct
}
