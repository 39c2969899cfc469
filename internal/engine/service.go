package engine

import "github.com/wastewise/wastewise/pkg/models"

const (
	ServiceUnderServiced = "under-serviced"
	ServiceWithinRange   = "within-range"
	ServiceOverServiced  = "over-serviced"
)

// TonsToYards converts compacted tonnage to cubic yards.
func TonsToYards(tons float64) float64 {
	return tons * YardsPerTon
}

// WeeklyYardsPerDoor converts annual tonnage into the weekly per-unit density
// metric the benchmarks are expressed in.
func WeeklyYardsPerDoor(annualTons float64, units int) float64 {
	if units <= 0 {
		return 0
	}
	return TonsToYards(annualTons) / float64(units) / WeeksPerYear
}

// AssessServiceLevel benchmarks weekly yards-per-door against the range for
// the container class.
func AssessServiceLevel(yardsPerDoorWeekly float64, compacted bool) models.ServiceAssessment {
	optimal, min, max := UncompactedOptimalYPD, UncompactedMinYPD, UncompactedMaxYPD
	if compacted {
		optimal, min, max = CompactedOptimalYPD, CompactedMinYPD, CompactedMaxYPD
	}

	a := models.ServiceAssessment{
		YardsPerDoorWeekly: yardsPerDoorWeekly,
		OptimalBenchmark:   optimal,
		MinBenchmark:       min,
		MaxBenchmark:       max,
	}

	switch {
	case yardsPerDoorWeekly < min:
		a.Status = ServiceUnderServiced
		a.Guidance = "Increase pickup frequency or container size."
	case yardsPerDoorWeekly <= max:
		a.Status = ServiceWithinRange
		if yardsPerDoorWeekly <= optimal {
			a.Guidance = "Optimal; maintain current service."
		} else {
			a.Guidance = "Slight over-service; consider a minor frequency reduction."
		}
	default:
		a.Status = ServiceOverServiced
		a.Guidance = "Reduce pickup frequency or downsize container."
	}
	return a
}
