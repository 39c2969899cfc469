// Package engine implements the waste-optimization decision rules. Every
// function is pure and deterministic: identical inputs yield identical
// recommendation output, with no clock or randomness in the math.
package engine

import "fmt"

// Decision thresholds and pricing. These are business constants, not derived
// values; every rule reads them from here and nowhere else.
const (
	// Compactor monitoring gates and economics.
	CompactorTonsPerHaulThreshold  = 7.0  // tons; at or above this, hauls are already efficient
	CompactorMaxPickupIntervalDays = 14.0 // days; longer intervals mean monitors cannot help
	CompactorTargetTonsPerHaul     = 8.5  // tons per haul monitors are tuned to achieve
	MonitorInstallCost             = 200.0
	MonitorMonthlyCost             = 50.0

	// Contamination reduction program.
	ContaminationRateThresholdPct = 3.0
	ContaminationReductionTarget  = 0.50

	// Bulk pickup subscription.
	BulkMonthlyAvgThreshold      = 500.0
	BulkSubscriptionMonthlyPrice = 400.0

	// Lease-up gate: actual density more than this far below the class
	// benchmark minimum means the shortfall is occupancy, not service.
	LeaseUpShortfallThresholdPct = 25.0

	// Weekly yards-per-door service benchmarks.
	CompactedOptimalYPD = 0.09
	CompactedMinYPD     = 0.06
	CompactedMaxYPD     = 0.125

	UncompactedOptimalYPD = 0.35
	UncompactedMinYPD     = 0.25
	UncompactedMaxYPD     = 0.50

	// Compacted waste density conversion.
	YardsPerTon = 3.448

	DaysPerYear   = 365.0
	MonthsPerYear = 12.0
	WeeksPerYear  = 52.0
)

// canonicalRuleTable is the single source of truth for every rule constant.
// VerifyRuleTable asserts the live constants against it at process start so a
// drive-by edit to one constant cannot silently diverge from the table.
var canonicalRuleTable = map[string]float64{
	"compactor_tons_per_haul_threshold":   7.0,
	"compactor_max_pickup_interval_days":  14.0,
	"compactor_target_tons_per_haul":      8.5,
	"monitor_install_cost":                200.0,
	"monitor_monthly_cost":                50.0,
	"contamination_rate_threshold_pct":    3.0,
	"contamination_reduction_target":      0.50,
	"bulk_monthly_avg_threshold":          500.0,
	"bulk_subscription_monthly_price":     400.0,
	"lease_up_shortfall_threshold_pct":    25.0,
	"compacted_min_ypd":                   0.06,
	"compacted_optimal_ypd":               0.09,
	"compacted_max_ypd":                   0.125,
	"uncompacted_min_ypd":                 0.25,
	"uncompacted_optimal_ypd":             0.35,
	"uncompacted_max_ypd":                 0.50,
	"yards_per_ton":                       3.448,
}

// VerifyRuleTable checks the live constants against the canonical rule table.
// Both binaries call this at startup and refuse to run on a mismatch.
func VerifyRuleTable() error {
	live := map[string]float64{
		"compactor_tons_per_haul_threshold":  CompactorTonsPerHaulThreshold,
		"compactor_max_pickup_interval_days": CompactorMaxPickupIntervalDays,
		"compactor_target_tons_per_haul":     CompactorTargetTonsPerHaul,
		"monitor_install_cost":               MonitorInstallCost,
		"monitor_monthly_cost":               MonitorMonthlyCost,
		"contamination_rate_threshold_pct":   ContaminationRateThresholdPct,
		"contamination_reduction_target":     ContaminationReductionTarget,
		"bulk_monthly_avg_threshold":         BulkMonthlyAvgThreshold,
		"bulk_subscription_monthly_price":    BulkSubscriptionMonthlyPrice,
		"lease_up_shortfall_threshold_pct":   LeaseUpShortfallThresholdPct,
		"compacted_min_ypd":                  CompactedMinYPD,
		"compacted_optimal_ypd":              CompactedOptimalYPD,
		"compacted_max_ypd":                  CompactedMaxYPD,
		"uncompacted_min_ypd":                UncompactedMinYPD,
		"uncompacted_optimal_ypd":            UncompactedOptimalYPD,
		"uncompacted_max_ypd":                UncompactedMaxYPD,
		"yards_per_ton":                      YardsPerTon,
	}

	if len(live) != len(canonicalRuleTable) {
		return fmt.Errorf("rule table conformance: %d live constants vs %d canonical entries",
			len(live), len(canonicalRuleTable))
	}
	for name, want := range canonicalRuleTable {
		got, ok := live[name]
		if !ok {
			return fmt.Errorf("rule table conformance: missing live constant %q", name)
		}
		if got != want {
			return fmt.Errorf("rule table conformance: %s is %v, canonical value is %v", name, got, want)
		}
	}
	return nil
}
