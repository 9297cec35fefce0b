package cascade

import "shelfwatch/internal/model"

// Default tuning constants. These are empirically tuned defaults, not hard
// invariants; the config surface can override them per deployment.
const (
	DefaultFuzzySimilarityFloor = 0.90
	DefaultTightPriceTolerance  = 1.00
	DefaultImagePriceTolerance  = 10.00
	DefaultMinImageOverlap      = 0.50
)

// Options holds the tunable thresholds for the cascade strategies.
type Options struct {
	FuzzySimilarityFloor float64
	TightPriceTolerance  float64
	MinImageOverlap      float64
}

// DefaultOptions returns the default cascade thresholds.
func DefaultOptions() Options {
	return Options{
		FuzzySimilarityFloor: DefaultFuzzySimilarityFloor,
		TightPriceTolerance:  DefaultTightPriceTolerance,
		MinImageOverlap:      DefaultMinImageOverlap,
	}
}

// Cascade is the ordered, inspectable list of matching strategies. The order
// and skip rules live here so they can be unit-tested in isolation from
// execution.
type Cascade struct {
	strategies []Strategy
}

// New builds a cascade in the default priority order with the given
// thresholds.
func New(opts Options) *Cascade {
	return &Cascade{
		strategies: []Strategy{
			&ExactURLStrategy{},
			&NormalizedURLStrategy{},
			&ProductCodeStrategy{},
			&ExactTitlePriceStrategy{PriceTolerance: opts.TightPriceTolerance},
			&FuzzyTitlePriceStrategy{SimilarityFloor: opts.FuzzySimilarityFloor, PriceTolerance: opts.TightPriceTolerance},
			&ImageOverlapStrategy{MinOverlap: opts.MinImageOverlap},
		},
	}
}

// Strategies returns the full cascade in default priority order.
func (c *Cascade) Strategies() []Strategy {
	return c.strategies
}

// OrderFor returns the strategy order for a retailer. When the profile shows
// low URL stability the URL and product-code strategies are skipped entirely
// and evaluation starts at title matching: for retailers that rewrite every
// URL the fuzzy fallback is the primary path, not a last resort.
func (c *Cascade) OrderFor(profile *model.RetailerMatchProfile) []Strategy {
	if profile != nil && profile.SkipURLStrategies() {
		return c.strategies[3:]
	}
	return c.strategies
}

// URLOutcomeFor classifies how a matched candidate's URL compares to the
// record's URL, for the profile learner's stability statistics.
func URLOutcomeFor(recordURL, matchedURL string) model.URLOutcome {
	switch {
	case recordURL == matchedURL:
		return model.URLStable
	case NormalizeURL(recordURL) == NormalizeURL(matchedURL):
		return model.URLNormalized
	default:
		return model.URLChanged
	}
}
