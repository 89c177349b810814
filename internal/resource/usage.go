package resource

import "math"

// UsageStatus grades how far an actual measurement strayed from its
// estimate.
type UsageStatus string

const (
	UsageValid       UsageStatus = "valid"
	UsageWarning     UsageStatus = "warning"
	UsageDiscrepancy UsageStatus = "discrepancy"
	UsageCritical    UsageStatus = "critical"
)

// Variance thresholds in percent of the estimate.
const (
	warningVariance     = 5.0
	discrepancyVariance = 10.0
	criticalVariance    = 25.0
)

// UsageCheck compares an estimate with what was measured. Variance is
// estimated minus actual, so a negative value means the work overran.
type UsageCheck struct {
	Estimated       float64     `json:"estimated"`
	Actual          float64     `json:"actual"`
	Variance        float64     `json:"variance"`
	VariancePercent float64     `json:"variance_pct"`
	Status          UsageStatus `json:"status"`
}

// CheckUsage grades actual against estimated. A non-positive estimate has
// no meaningful percentage and is reported with zero variance percent.
func CheckUsage(estimated, actual float64) UsageCheck {
	c := UsageCheck{Estimated: estimated, Actual: actual, Variance: estimated - actual}
	if estimated > 0 {
		c.VariancePercent = c.Variance / estimated * 100
	}
	c.Status = usageStatus(math.Abs(c.VariancePercent))
	return c
}

func usageStatus(pct float64) UsageStatus {
	switch {
	case pct < warningVariance:
		return UsageValid
	case pct < discrepancyVariance:
		return UsageWarning
	case pct < criticalVariance:
		return UsageDiscrepancy
	default:
		return UsageCritical
	}
}
