package model

import "time"

// Classification is the three-way outcome of resolving one catalog record.
type Classification string

// Classification constants.
const (
	ClassificationExisting           Classification = "EXISTING"
	ClassificationConfirmedNew       Classification = "CONFIRMED_NEW"
	ClassificationSuspectedDuplicate Classification = "SUSPECTED_DUPLICATE"
)

// MatchMethod identifies which cascade strategy produced a match.
type MatchMethod string

// Cascade strategy identifiers, in default priority order.
const (
	MethodNone            MatchMethod = "none"
	MethodExactURL        MatchMethod = "exact_url"
	MethodNormalizedURL   MatchMethod = "normalized_url"
	MethodProductCode     MatchMethod = "product_code"
	MethodExactTitlePrice MatchMethod = "exact_title_price"
	MethodFuzzyTitlePrice MatchMethod = "fuzzy_title_price"
	MethodImageOverlap    MatchMethod = "image_overlap"
)

// URLOutcome records how the resolved URL compared to the matched candidate's
// URL. The learner uses this to maintain the URL stability score.
type URLOutcome string

// URL outcome constants.
const (
	URLStable     URLOutcome = "STABLE"
	URLNormalized URLOutcome = "NORMALIZED"
	URLChanged    URLOutcome = "CHANGED"
)

// CandidateSummary carries enough of a matched candidate for a human to
// compare it side by side with the incoming record.
type CandidateSummary struct {
	LastUpdated time.Time `json:"last_updated"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Price       *float64  `json:"price,omitempty"`
}

// ResolutionResult is the resolver's output for one catalog record. It is
// ephemeral, consumed by the outcome router and by the profile learner for
// the batch that produced it.
type ResolutionResult struct {
	Matched        *CandidateSummary
	Classification Classification
	Method         MatchMethod
	URLOutcome     URLOutcome
	MissingSignals []string
	Confidence     float64
	ImageOverlap   float64
}

// MatchedURL returns the matched candidate's URL, or "" for no match.
func (r *ResolutionResult) MatchedURL() string {
	if r.Matched == nil {
		return ""
	}
	return r.Matched.URL
}

// IsMatch reports whether the result resolved against a stored candidate.
func (r *ResolutionResult) IsMatch() bool {
	return r.Classification != ClassificationConfirmedNew
}
