package models

// RecommendationType tags the optimization rule that produced a recommendation.
type RecommendationType string

const (
	RecCompactorMonitoring     RecommendationType = "compactor_monitoring"
	RecContaminationReduction  RecommendationType = "contamination_reduction"
	RecBulkSubscription        RecommendationType = "bulk_subscription"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Recommendation is one output of the calculation engine. Exactly one
// breakdown pointer is set, matching Type. Recommendations are produced fresh
// on every run and owned by the job's result payload.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Recommended bool               `json:"recommended"`
	Priority    int                `json:"priority"`
	Confidence  string             `json:"confidence"`

	Compactor     *CompactorBreakdown     `json:"compactor,omitempty"`
	Contamination *ContaminationBreakdown `json:"contamination,omitempty"`
	Bulk          *BulkBreakdown          `json:"bulk,omitempty"`
}

// NetAnnualSavings returns the recommendation's steady-state annual savings,
// used for priority ranking. Zero when not recommended.
func (r *Recommendation) NetAnnualSavings() float64 {
	if !r.Recommended {
		return 0
	}
	switch r.Type {
	case RecCompactorMonitoring:
		return r.Compactor.NetOngoingSavings
	case RecContaminationReduction:
		return r.Contamination.AnnualSavings
	case RecBulkSubscription:
		return r.Bulk.NetAnnualSavings
	}
	return 0
}

// CompactorBreakdown exposes every intermediate figure behind a compactor
// monitoring decision. The breakdown is part of the contract, not just the
// final dollar figure.
type CompactorBreakdown struct {
	HaulCount           int     `json:"haul_count"`
	ObservationDays     float64 `json:"observation_days"`
	AvgTonsPerHaul      float64 `json:"avg_tons_per_haul"`
	MaxIntervalDays     float64 `json:"max_interval_days"`
	TonsThreshold       float64 `json:"tons_threshold"`
	IntervalCapDays     float64 `json:"interval_cap_days"`
	CostPerHaul         float64 `json:"cost_per_haul"`
	CurrentAnnualHauls  float64 `json:"current_annual_hauls"`
	CurrentAnnualCost   float64 `json:"current_annual_cost"`
	TargetTonsPerHaul   float64 `json:"target_tons_per_haul"`
	OptimizedAnnualHauls float64 `json:"optimized_annual_hauls"`
	HaulsEliminated     float64 `json:"hauls_eliminated"`
	GrossAnnualSavings  float64 `json:"gross_annual_savings"`
	InstallCost         float64 `json:"install_cost"`
	MonthlyMonitoring   float64 `json:"monthly_monitoring"`
	AnnualMonitoring    float64 `json:"annual_monitoring"`
	NetYearOneSavings   float64 `json:"net_year_one_savings"`
	NetOngoingSavings   float64 `json:"net_ongoing_savings"`
	ROIPct              float64 `json:"roi_pct"`
	PaybackMonths       float64 `json:"payback_months"`
}

// ContaminationBreakdown exposes the figures behind a contamination
// reduction decision.
type ContaminationBreakdown struct {
	ContaminationCharges float64 `json:"contamination_charges"`
	TotalSpend           float64 `json:"total_spend"`
	ContaminationRatePct float64 `json:"contamination_rate_pct"`
	RateThresholdPct     float64 `json:"rate_threshold_pct"`
	ReductionTarget      float64 `json:"reduction_target"`
	ProjectedCharges     float64 `json:"projected_charges"`
	AnnualSavings        float64 `json:"annual_savings"`
}

// BulkBreakdown exposes the figures behind a bulk subscription decision.
type BulkBreakdown struct {
	MonthsObserved    int     `json:"months_observed"`
	AvgMonthlyBulk    float64 `json:"avg_monthly_bulk"`
	MonthlyThreshold  float64 `json:"monthly_threshold"`
	SubscriptionPrice float64 `json:"subscription_price"`
	MonthlySavings    float64 `json:"monthly_savings"`
	NetAnnualSavings  float64 `json:"net_annual_savings"`
}

// LeaseUpStatus is the occupancy gate. When IsLeaseUp is true the service
// optimization recommendations are suppressed for the run: the volume
// shortfall is occupancy-driven, not service inefficiency.
type LeaseUpStatus struct {
	IsLeaseUp              bool    `json:"is_lease_up"`
	ActualYardsPerDoorWeek float64 `json:"actual_yards_per_door_week"`
	BenchmarkMinimum       float64 `json:"benchmark_minimum"`
	ShortfallPct           float64 `json:"shortfall_pct"`
	ShortfallThresholdPct  float64 `json:"shortfall_threshold_pct"`
}

// ServiceAssessment benchmarks weekly yards-per-door against the class range.
type ServiceAssessment struct {
	Status                string  `json:"status"` // under-serviced | within-range | over-serviced
	Guidance              string  `json:"guidance"`
	YardsPerDoorWeekly    float64 `json:"yards_per_door_weekly"`
	OptimalBenchmark      float64 `json:"optimal_benchmark"`
	MinBenchmark          float64 `json:"min_benchmark"`
	MaxBenchmark          float64 `json:"max_benchmark"`
}

// Evaluation is the full output of one calculation engine run.
type Evaluation struct {
	LeaseUp           LeaseUpStatus     `json:"lease_up"`
	Recommendations   []Recommendation  `json:"recommendations"`
	ServiceAssessment ServiceAssessment `json:"service_assessment"`
	TotalAnnualSavings float64          `json:"total_annual_savings"`
}
