package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the minute-precision layout used by both journals.
const TimestampLayout = "2006-01-02 15:04"

type Session string

const (
	SessionAsia     Session = "Asia"
	SessionLondon   Session = "London"
	SessionNewYork  Session = "New York"
	SessionOffHours Session = "Off-hours"
)

type Decision string

const (
	DecisionSkipped Decision = "SKIPPED"
	DecisionTaken   Decision = "TAKEN"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionSkipped, DecisionTaken:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

func ParseSession(s string) (Session, error) {
	switch v := Session(s); v {
	case SessionAsia, SessionLondon, SessionNewYork, SessionOffHours:
		return v, nil
	}
	return "", fmt.Errorf("unknown session %q", s)
}

// ContextRecord is one user-confirmed classification saved to the context
// journal. Records are never updated once written.
type ContextRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Pair      string    `json:"pair"`
	InstID    string    `json:"inst_id"`
	Session   Session   `json:"session"`
	ContextLabels
	Decision Decision `json:"decision"`
	Note     string   `json:"note,omitempty"`
}

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

type PairSource string

const (
	PairSourceManual      PairSource = "MANUAL"
	PairSourceContextGate PairSource = "CONTEXT_GATE"
)

func ParsePairSource(s string) (PairSource, error) {
	switch v := PairSource(s); v {
	case PairSourceManual, PairSourceContextGate:
		return v, nil
	}
	return "", fmt.Errorf("unknown pair source %q", s)
}

// TimeState is the advisory age of a trade, derived on every refresh and
// never persisted.
type TimeState string

const (
	TimeActive TimeState = "ACTIVE"
	TimeMature TimeState = "MATURE"
	TimeDone   TimeState = "DONE"
)

// TradeRecord is owned by the trade journal. LinkedContext is a copy taken
// when the trade was confirmed, not a reference into the context journal.
type TradeRecord struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Pair            string         `json:"pair"`
	PairSource      PairSource     `json:"pair_source"`
	Direction       Direction      `json:"direction"`
	EntryPrice      float64        `json:"entry_price"`
	StopLossPrice   float64        `json:"stop_loss_price"`
	RiskPercent     float64        `json:"risk_percent"`
	BiasScore       int            `json:"bias_score"`
	Leverage        float64        `json:"leverage"`
	PositionSize    float64        `json:"position_size"`
	Margin          float64        `json:"margin"`
	TimeEvalMinutes int            `json:"time_eval_min"`
	LinkedContext   *ContextRecord `json:"linked_context,omitempty"`
	Status          TradeStatus    `json:"trade_status"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	ResultR         *float64       `json:"result_r,omitempty"`
	ExitReason      string         `json:"exit_reason,omitempty"`
}

// TimeState derives ACTIVE/MATURE/DONE for the trade at now.
func (t TradeRecord) TimeState(now time.Time) TimeState {
	if t.Status == TradeClosed {
		return TimeDone
	}
	if t.TimeEvalMinutes > 0 && now.Sub(t.Timestamp) >= time.Duration(t.TimeEvalMinutes)*time.Minute {
		return TimeMature
	}
	return TimeActive
}

// ElapsedMinutes is the whole number of minutes since the trade was opened.
func (t TradeRecord) ElapsedMinutes(now time.Time) int {
	if now.Before(t.Timestamp) {
		return 0
	}
	return int(now.Sub(t.Timestamp) / time.Minute)
}
