package resource

import (
	"errors"
	"fmt"
)

// TransferEstimate is the wall-clock cost of moving a dataset: raw transfer
// time plus a fixed per-item overhead.
type TransferEstimate struct {
	TransferSec float64 `json:"transfer_s"`
	OverheadSec float64 `json:"overhead_s"`
	TotalSec    float64 `json:"total_s"`
}

// EstimateTransfer returns the time to move dataGB over bandwidthMbps when
// each of items pays latencyMs of orchestration overhead.
func EstimateTransfer(dataGB, bandwidthMbps float64, items int, latencyMs float64) (TransferEstimate, error) {
	if bandwidthMbps <= 0 {
		return TransferEstimate{}, errors.New("bandwidth must be greater than zero")
	}
	transfer := dataGB * 1024 * 8 / bandwidthMbps
	overhead := float64(items) * latencyMs / 1000
	return TransferEstimate{
		TransferSec: transfer,
		OverheadSec: overhead,
		TotalSec:    transfer + overhead,
	}, nil
}

// CostEstimate splits the cost of a job into data transfer and per-item
// compute.
type CostEstimate struct {
	TransferCost float64 `json:"transfer_cost"`
	ComputeCost  float64 `json:"compute_cost"`
	TotalCost    float64 `json:"total_cost"`
}

func EstimateCost(dataGB, costPerGB float64, items int, costPerRun float64) CostEstimate {
	transfer := dataGB * costPerGB
	compute := float64(items) * costPerRun
	return CostEstimate{
		TransferCost: transfer,
		ComputeCost:  compute,
		TotalCost:    transfer + compute,
	}
}

type CostFlag string

const (
	CostGreen  CostFlag = "green"
	CostYellow CostFlag = "yellow"
	CostRed    CostFlag = "red"
)

// Compute share thresholds, in percent of the total cost.
const (
	computeShareHigh = 70.0
	computeShareLow  = 20.0
)

type CostAdvice struct {
	ComputeShare float64  `json:"compute_share_pct"`
	Flag         CostFlag `json:"flag"`
	Message      string   `json:"message"`
}

// AdviseCost flags the share of compute in the total. A zero-cost job is
// green.
func AdviseCost(c CostEstimate) CostAdvice {
	if c.TotalCost == 0 {
		return CostAdvice{Flag: CostGreen, Message: "zero cost operation"}
	}
	share := c.ComputeCost / c.TotalCost * 100
	switch {
	case share > computeShareHigh:
		return CostAdvice{ComputeShare: share, Flag: CostRed, Message: "compute dominates the budget; consider a cheaper model or tier"}
	case share < computeShareLow:
		return CostAdvice{ComputeShare: share, Flag: CostGreen, Message: "compute use is minimal; transfer fees dominate"}
	default:
		return CostAdvice{ComputeShare: share, Flag: CostYellow, Message: fmt.Sprintf("compute is %.0f%% of the total", share)}
	}
}
