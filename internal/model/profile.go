package model

import "time"

// Profile defaults for a retailer the system has never scanned before.
const (
	DefaultURLStabilityScore   = 1.0
	DefaultConfidenceThreshold = 0.85

	// LowURLStabilityCutoff is the score below which the cascade skips the
	// URL-based strategies entirely and starts at title matching.
	LowURLStabilityCutoff = 0.50
)

// RetailerMatchProfile tracks per-retailer stability statistics and the
// currently preferred matching strategy. Profiles are mutated only by the
// profile learner; scores move via weighted incremental averaging so a single
// noisy batch cannot erase historical signal.
type RetailerMatchProfile struct {
	LastUpdated           time.Time
	MethodCounts          map[MatchMethod]int
	Retailer              string
	PreferredMethod       MatchMethod
	SampleSize            int
	ImageSampleSize       int
	URLStabilityScore     float64
	ImageConsistencyScore float64
	ConfidenceThreshold   float64
}

// NewRetailerMatchProfile returns a default-initialized profile for a
// retailer with no observed history.
func NewRetailerMatchProfile(retailer string) *RetailerMatchProfile {
	return &RetailerMatchProfile{
		Retailer:              retailer,
		SampleSize:            0,
		URLStabilityScore:     DefaultURLStabilityScore,
		ImageConsistencyScore: DefaultURLStabilityScore,
		PreferredMethod:       MethodExactURL,
		ConfidenceThreshold:   DefaultConfidenceThreshold,
		MethodCounts:          make(map[MatchMethod]int),
		LastUpdated:           time.Now(),
	}
}

// SkipURLStrategies reports whether this retailer rewrites URLs often enough
// that the URL and product-code strategies are not worth trying.
func (p *RetailerMatchProfile) SkipURLStrategies() bool {
	return p.URLStabilityScore < LowURLStabilityCutoff
}
