package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckUsage(t *testing.T) {
	tests := []struct {
		name      string
		estimated float64
		actual    float64
		pct       float64
		status    UsageStatus
	}{
		{"exact", 10, 10, 0, UsageValid},
		{"slightly fast", 10, 9.6, 4, UsageValid},
		{"bit fast", 10, 9.4, 6, UsageWarning},
		{"overran", 10, 10.8, -8, UsageWarning},
		{"overran more", 10, 11.2, -12, UsageDiscrepancy},
		{"well under", 10, 8, 20, UsageDiscrepancy},
		{"quarter under", 8, 6, 25, UsageCritical},
		{"far over", 2, 10, -400, UsageCritical},
		{"no estimate", 0, 3, 0, UsageValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CheckUsage(tt.estimated, tt.actual)
			assert.InDelta(t, tt.estimated-tt.actual, c.Variance, 1e-9)
			assert.InDelta(t, tt.pct, c.VariancePercent, 1e-9)
			assert.Equal(t, tt.status, c.Status)
		})
	}
}
