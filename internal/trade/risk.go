package trade

import (
	"fmt"
	"math"

	"contextgate/internal/models"

	"github.com/shopspring/decimal"
)

// RiskInput is the account and order data needed to size a position.
type RiskInput struct {
	Equity      float64
	RiskPercent float64
	Entry       float64
	StopLoss    float64
	Leverage    float64
}

// Sizing is the outcome of ComputeRisk. PositionSize is quote notional.
type Sizing struct {
	RiskUSD      float64          `json:"risk_usd"`
	StopDistance float64          `json:"stop_distance"`
	PositionSize float64          `json:"position_size"`
	Margin       float64          `json:"margin"`
	Direction    models.Direction `json:"direction"`
}

var hundred = decimal.NewFromInt(100)

// ComputeRisk sizes a position so that hitting the stop loses RiskPercent of
// Equity. The arithmetic is exact decimal; results are rounded to 8 places.
func ComputeRisk(in RiskInput) (Sizing, error) {
	for _, v := range []float64{in.Equity, in.RiskPercent, in.Entry, in.StopLoss, in.Leverage} {
		if !isFinite(v) {
			return Sizing{}, fmt.Errorf("non-finite input %v: %w", v, models.ErrInvalidRiskInput)
		}
	}
	switch {
	case in.Equity <= 0:
		return Sizing{}, fmt.Errorf("equity %v must be positive: %w", in.Equity, models.ErrInvalidRiskInput)
	case in.RiskPercent <= 0:
		return Sizing{}, fmt.Errorf("risk percent %v must be positive: %w", in.RiskPercent, models.ErrInvalidRiskInput)
	case in.Entry <= 0 || in.StopLoss <= 0:
		return Sizing{}, fmt.Errorf("entry %v and stop loss %v must be positive: %w", in.Entry, in.StopLoss, models.ErrInvalidRiskInput)
	case in.Entry == in.StopLoss:
		return Sizing{}, fmt.Errorf("entry equals stop loss: %w", models.ErrInvalidRiskInput)
	case in.Leverage < 1:
		return Sizing{}, fmt.Errorf("leverage %v below 1: %w", in.Leverage, models.ErrInvalidRiskInput)
	}

	equity := decimal.NewFromFloat(in.Equity)
	riskPct := decimal.NewFromFloat(in.RiskPercent)
	entry := decimal.NewFromFloat(in.Entry)
	stop := decimal.NewFromFloat(in.StopLoss)
	leverage := decimal.NewFromFloat(in.Leverage)

	riskUSD := equity.Mul(riskPct).Div(hundred)
	distance := entry.Sub(stop).Abs()
	position := riskUSD.Mul(entry).Div(distance)
	margin := position.Div(leverage)

	direction := models.DirectionShort
	if entry.GreaterThan(stop) {
		direction = models.DirectionLong
	}

	return Sizing{
		RiskUSD:      riskUSD.Round(8).InexactFloat64(),
		StopDistance: distance.Round(8).InexactFloat64(),
		PositionSize: position.Round(8).InexactFloat64(),
		Margin:       margin.Round(8).InexactFloat64(),
		Direction:    direction,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BiasChecklist is the pre-trade confirmation list. The score is the number
// of ticked items.
var BiasChecklist = []string{
	"EMA aligned",
	"Price held by EMA",
	"Momentum present",
	"Market not choppy",
}

// BiasScore counts ticked items, capped at the checklist length.
func BiasScore(checks []bool) int {
	score := 0
	for i, ok := range checks {
		if i >= len(BiasChecklist) {
			break
		}
		if ok {
			score++
		}
	}
	return score
}

// ResultOptions are the preset R multiples offered when recording a result.
var ResultOptions = []float64{-1, -0.5, 0, 0.5, 1, 1.5, 2}
