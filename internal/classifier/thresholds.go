package classifier

// Thresholds are the tunable cut-offs of the ratio partitions. Comparisons
// are strict: a ratio equal to a threshold falls into the normal band.
type Thresholds struct {
	// RVolExpanding: rvol above this is EXPANDING. Default 1.2.
	RVolExpanding float64
	// RVolCompressed: rvol below this is COMPRESSED. Default 0.8.
	RVolCompressed float64
	// RVAbove: rv above this is ABOVE_USUAL. Default 1.3.
	RVAbove float64
	// RVBelow: rv below this is BELOW_USUAL. Default 0.8.
	RVBelow float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RVolExpanding:  1.2,
		RVolCompressed: 0.8,
		RVAbove:        1.3,
		RVBelow:        0.8,
	}
}
