package classifier

import "contextgate/internal/models"

// Rule maps a label combination to a behavior.
type Rule struct {
	Name     string
	Match    func(models.ContextLabels) bool
	Behavior models.Behavior
}

// BehaviorRules are evaluated in order; the first match wins and the final
// rule always matches.
var BehaviorRules = []Rule{
	{
		Name: "accumulation",
		Match: func(l models.ContextLabels) bool {
			return l.Volume == models.VolumeAboveUsual && l.Volatility == models.VolatilityCompressed && l.OI == models.OIBuilding
		},
		Behavior: models.BehaviorAccumulationLike,
	},
	{
		Name: "healthy_participation",
		Match: func(l models.ContextLabels) bool {
			return l.Volume == models.VolumeAboveUsual && l.Volatility == models.VolatilityExpanding && l.OI == models.OIBuilding
		},
		Behavior: models.BehaviorHealthyParticipation,
	},
	{
		Name:     "exit",
		Match:    func(l models.ContextLabels) bool { return l.OI == models.OIUnwinding },
		Behavior: models.BehaviorExitLike,
	},
	{
		Name:     "low_engagement",
		Match:    func(l models.ContextLabels) bool { return l.Volume == models.VolumeBelowUsual },
		Behavior: models.BehaviorLowEngagement,
	},
	{
		Name:     "mixed",
		Match:    func(models.ContextLabels) bool { return true },
		Behavior: models.BehaviorMixed,
	},
}

// ResolveBehavior applies BehaviorRules and then the sanity override.
func ResolveBehavior(l models.ContextLabels) models.Behavior {
	return resolveWith(BehaviorRules, l)
}

func resolveWith(rules []Rule, l models.ContextLabels) models.Behavior {
	behavior := models.BehaviorMixed
	for _, r := range rules {
		if r.Match(l) {
			behavior = r.Behavior
			break
		}
	}
	// Accumulation needs real position building; an inert OI reading (which
	// includes the OI-unavailable fallback) never counts.
	if behavior == models.BehaviorAccumulationLike && l.OI == models.OIInert {
		behavior = models.BehaviorMixed
	}
	return behavior
}

// VerdictFor maps a behavior to the trade verdict.
func VerdictFor(b models.Behavior) models.Verdict {
	switch b {
	case models.BehaviorLowEngagement, models.BehaviorExitLike:
		return models.VerdictNoTrade
	case models.BehaviorAccumulationLike:
		return models.VerdictWatchOnly
	default:
		return models.VerdictTradeable
	}
}
