package models

import "fmt"

type VolumeLabel string

const (
	VolumeAboveUsual VolumeLabel = "ABOVE_USUAL"
	VolumeNormal     VolumeLabel = "NORMAL"
	VolumeBelowUsual VolumeLabel = "BELOW_USUAL"
)

type VolatilityLabel string

const (
	VolatilityExpanding   VolatilityLabel = "EXPANDING"
	VolatilityCompressed  VolatilityLabel = "COMPRESSED"
	VolatilityRangeNormal VolatilityLabel = "RANGE_NORMAL"
)

type OILabel string

const (
	OIBuilding  OILabel = "OI_BUILDING"
	OIUnwinding OILabel = "OI_UNWINDING"
	OIInert     OILabel = "OI_INERT"
)

type Behavior string

const (
	BehaviorAccumulationLike     Behavior = "ACCUMULATION_LIKE"
	BehaviorHealthyParticipation Behavior = "HEALTHY_PARTICIPATION"
	BehaviorExitLike             Behavior = "EXIT_LIKE"
	BehaviorLowEngagement        Behavior = "LOW_ENGAGEMENT"
	BehaviorMixed                Behavior = "MIXED"
)

type Verdict string

const (
	VerdictTradeable Verdict = "TRADEABLE"
	VerdictWatchOnly Verdict = "WATCH_ONLY"
	VerdictNoTrade   Verdict = "NO_TRADE"
)

// Ratios are the raw statistics behind the labels.
type Ratios struct {
	RVol    float64 `json:"rvol"`
	RV      float64 `json:"rv"`
	OIDelta float64 `json:"oi_delta"`
}

// Degenerate marks labels that came from a documented fallback rather than
// from a real measurement.
type Degenerate struct {
	VolatilityFloored bool `json:"volatility_floored,omitempty"`
	VolumeFloored     bool `json:"volume_floored,omitempty"`
	OIUnavailable     bool `json:"oi_unavailable,omitempty"`
}

// Any reports whether at least one fallback was used.
func (d Degenerate) Any() bool {
	return d.VolatilityFloored || d.VolumeFloored || d.OIUnavailable
}

// ContextLabels is the full classification of one snapshot.
type ContextLabels struct {
	Volume     VolumeLabel     `json:"volume_label"`
	Volatility VolatilityLabel `json:"volatility_label"`
	OI         OILabel         `json:"oi_label"`
	Behavior   Behavior        `json:"behavior"`
	Verdict    Verdict         `json:"verdict"`
	Ratios     Ratios          `json:"ratios"`
	Degenerate Degenerate      `json:"degenerate"`
}

func ParseVolumeLabel(s string) (VolumeLabel, error) {
	switch v := VolumeLabel(s); v {
	case VolumeAboveUsual, VolumeNormal, VolumeBelowUsual:
		return v, nil
	}
	return "", fmt.Errorf("unknown volume label %q", s)
}

func ParseVolatilityLabel(s string) (VolatilityLabel, error) {
	switch v := VolatilityLabel(s); v {
	case VolatilityExpanding, VolatilityCompressed, VolatilityRangeNormal:
		return v, nil
	}
	return "", fmt.Errorf("unknown volatility label %q", s)
}

func ParseOILabel(s string) (OILabel, error) {
	switch v := OILabel(s); v {
	case OIBuilding, OIUnwinding, OIInert:
		return v, nil
	}
	return "", fmt.Errorf("unknown oi label %q", s)
}

func ParseBehavior(s string) (Behavior, error) {
	switch v := Behavior(s); v {
	case BehaviorAccumulationLike, BehaviorHealthyParticipation, BehaviorExitLike, BehaviorLowEngagement, BehaviorMixed:
		return v, nil
	}
	return "", fmt.Errorf("unknown behavior %q", s)
}

func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case VerdictTradeable, VerdictWatchOnly, VerdictNoTrade:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}
