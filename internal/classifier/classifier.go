// Package classifier labels a MarketSnapshot: relative volatility, relative
// volume and open-interest momentum feed an ordered behavior rule list,
// which in turn yields the verdict.
package classifier

import "contextgate/internal/models"

type Classifier struct {
	thresholds Thresholds
}

func New(th Thresholds) *Classifier {
	return &Classifier{thresholds: th}
}

func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify is deterministic: the same snapshot and thresholds always give
// the same labels.
func (c *Classifier) Classify(snap models.MarketSnapshot) models.ContextLabels {
	var labels models.ContextLabels

	rvol, floored := RelativeVolatility(snap.MeanRange, snap.MedianRange)
	labels.Ratios.RVol = rvol
	labels.Degenerate.VolatilityFloored = floored
	labels.Volatility = c.VolatilityLabel(rvol)

	rv, floored := RelativeVolume(snap.QuoteVolume24h, snap.MedianQuoteVolume, snap.Count)
	labels.Ratios.RV = rv
	labels.Degenerate.VolumeFloored = floored
	labels.Volume = c.VolumeLabel(rv)

	if snap.OIAvailable {
		labels.Ratios.OIDelta = snap.OIDelta
		labels.OI = OIMomentum(snap.OIDelta)
	} else {
		labels.OI = models.OIInert
		labels.Degenerate.OIUnavailable = true
	}

	labels.Behavior = ResolveBehavior(labels)
	labels.Verdict = VerdictFor(labels.Behavior)
	return labels
}

// RelativeVolatility is mean range over median range. A zero median yields
// 1.0 and reports floored=true.
func RelativeVolatility(meanRange, medianRange float64) (rvol float64, floored bool) {
	if medianRange == 0 {
		return 1.0, true
	}
	return meanRange / medianRange, false
}

// RelativeVolume is the realised 24h quote volume over the baseline
// extrapolated from the median bar. A zero baseline yields 1.0 and
// reports floored=true.
func RelativeVolume(quoteVolume24h, medianQuoteVolume float64, count int) (rv float64, floored bool) {
	baseline := medianQuoteVolume * float64(count)
	if baseline == 0 {
		return 1.0, true
	}
	return quoteVolume24h / baseline, false
}

func (c *Classifier) VolatilityLabel(rvol float64) models.VolatilityLabel {
	switch {
	case rvol > c.thresholds.RVolExpanding:
		return models.VolatilityExpanding
	case rvol < c.thresholds.RVolCompressed:
		return models.VolatilityCompressed
	default:
		return models.VolatilityRangeNormal
	}
}

func (c *Classifier) VolumeLabel(rv float64) models.VolumeLabel {
	switch {
	case rv > c.thresholds.RVAbove:
		return models.VolumeAboveUsual
	case rv < c.thresholds.RVBelow:
		return models.VolumeBelowUsual
	default:
		return models.VolumeNormal
	}
}

// OIMomentum labels the newest-minus-oldest open-interest delta.
func OIMomentum(delta float64) models.OILabel {
	switch {
	case delta > 0:
		return models.OIBuilding
	case delta < 0:
		return models.OIUnwinding
	default:
		return models.OIInert
	}
}
