package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTransfer(t *testing.T) {
	e, err := EstimateTransfer(1, 100, 50, 20)
	require.NoError(t, err)
	assert.InDelta(t, 81.92, e.TransferSec, 1e-9)
	assert.InDelta(t, 1.0, e.OverheadSec, 1e-9)
	assert.InDelta(t, 82.92, e.TotalSec, 1e-9)

	for _, bw := range []float64{0, -10} {
		_, err := EstimateTransfer(1, bw, 1, 1)
		assert.ErrorContains(t, err, "bandwidth")
	}
}

func TestEstimateCost(t *testing.T) {
	c := EstimateCost(10, 0.09, 200, 0.002)
	assert.InDelta(t, 0.9, c.TransferCost, 1e-9)
	assert.InDelta(t, 0.4, c.ComputeCost, 1e-9)
	assert.InDelta(t, 1.3, c.TotalCost, 1e-9)
}

func TestAdviseCost(t *testing.T) {
	tests := []struct {
		name  string
		cost  CostEstimate
		flag  CostFlag
		share float64
	}{
		{"zero total", CostEstimate{}, CostGreen, 0},
		{"transfer bound", EstimateCost(10, 1, 1, 1), CostGreen, 100.0 / 11},
		{"balanced", EstimateCost(1, 1, 1, 1), CostYellow, 50},
		{"compute leaning", EstimateCost(2, 1, 3, 1), CostYellow, 60},
		{"transfer leaning", EstimateCost(3, 1, 1, 1), CostYellow, 25},
		{"compute bound", EstimateCost(1, 1, 9, 1), CostRed, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AdviseCost(tt.cost)
			assert.Equal(t, tt.flag, a.Flag)
			assert.InDelta(t, tt.share, a.ComputeShare, 1e-9)
			assert.NotEmpty(t, a.Message)
		})
	}
}
