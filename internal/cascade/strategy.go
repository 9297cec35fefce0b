// Package cascade implements the ordered matching strategies used to resolve
// catalog records against previously seen products.
package cascade

import (
	"time"

	"shelfwatch/internal/model"
)

// Strategy confidence constants, in default priority order.
const (
	ConfidenceExactURL        = 1.00
	ConfidenceNormalizedURL   = 0.95
	ConfidenceProductCode     = 0.90
	ConfidenceExactTitlePrice = 0.95

	// Fuzzy title confidence scales from the base at the similarity floor up
	// to the cap: 0.85 + (similarity - 0.90) * 5, clamped to 0.95.
	FuzzyConfidenceBase  = 0.85
	FuzzyConfidenceCap   = 0.95
	FuzzyConfidenceScale = 5.0

	// Image overlap confidence depends on whether the retailer's images have
	// proven consistent across scans.
	ImageConfidenceBaseUnreliable  = 0.65
	ImageConfidenceScaleUnreliable = 0.15
	ImageConfidenceBaseReliable    = 0.75
	ImageConfidenceScaleReliable   = 0.20
	ImageReliabilityCutoff         = 0.50
)

// CandidateSource records which store a candidate came from.
type CandidateSource string

// Candidate source constants.
const (
	SourceBaseline  CandidateSource = "baseline"
	SourceCanonical CandidateSource = "canonical"
)

// Candidate is a previously seen product considered by a strategy. Candidates
// are built from baseline snapshot records or canonical products.
type Candidate struct {
	LastUpdated time.Time
	URL         string
	Retailer    string
	Title       string
	ProductCode string
	Source      CandidateSource
	ImageURLs   []string
	Price       *float64
}

// CandidateFromRecord builds a candidate from a baseline snapshot record.
func CandidateFromRecord(rec model.CatalogRecord, capturedAt time.Time) Candidate {
	return Candidate{
		URL:         rec.URL,
		Retailer:    rec.Retailer,
		Title:       rec.Title,
		ProductCode: rec.ProductCode,
		Price:       rec.Price,
		ImageURLs:   rec.ImageURLs,
		LastUpdated: capturedAt,
		Source:      SourceBaseline,
	}
}

// CandidateFromProduct builds a candidate from a canonical product.
func CandidateFromProduct(p model.CanonicalProduct) Candidate {
	return Candidate{
		URL:         p.URL,
		Retailer:    p.Retailer,
		Title:       p.Title,
		ProductCode: p.ProductCode,
		Price:       p.Price,
		ImageURLs:   p.ImageURLs,
		LastUpdated: p.LastUpdated,
		Source:      SourceCanonical,
	}
}

// Match is a strategy hit against one candidate. Similarity is the secondary
// confidence used for deterministic tie-breaking between candidates that
// satisfy the same strategy.
type Match struct {
	Candidate    Candidate
	Method       model.MatchMethod
	Confidence   float64
	Similarity   float64
	ImageOverlap float64
}

// Summary converts the matched candidate into a review-facing summary.
func (m *Match) Summary() *model.CandidateSummary {
	return &model.CandidateSummary{
		URL:         m.Candidate.URL,
		Title:       m.Candidate.Title,
		Price:       m.Candidate.Price,
		LastUpdated: m.Candidate.LastUpdated,
	}
}

// Strategy evaluates one matching method against a candidate set. Strategies
// are pure: they read the record, the candidates, and the retailer profile,
// and return nil when nothing satisfies the method's own floor.
type Strategy interface {
	Method() model.MatchMethod
	Evaluate(record model.CatalogRecord, candidates []Candidate, profile *model.RetailerMatchProfile) *Match
}

// pickBest applies the tie-break rule when several candidates satisfy the
// same strategy: highest secondary confidence wins, then the most recently
// updated candidate. The ordering is deterministic across runs.
func pickBest(matches []Match) *Match {
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Similarity > best.Similarity {
			best = m
			continue
		}
		if m.Similarity == best.Similarity && m.Candidate.LastUpdated.After(best.Candidate.LastUpdated) {
			best = m
		}
	}

	return &best
}

// priceWithin reports whether both prices are present and differ by less
// than tolerance.
func priceWithin(a, b *float64, tolerance float64) bool {
	if a == nil || b == nil {
		return false
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
