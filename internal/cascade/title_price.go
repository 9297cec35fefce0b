package cascade

import (
	"strings"

	"shelfwatch/internal/model"
)

// ExactTitlePriceStrategy matches on case-insensitive exact title equality
// combined with a tight price window. Confidence 0.95.
type ExactTitlePriceStrategy struct {
	PriceTolerance float64
}

// Method returns the strategy identifier.
func (s *ExactTitlePriceStrategy) Method() model.MatchMethod { return model.MethodExactTitlePrice }

// Evaluate matches candidates with an identical (case-folded) title and a
// price within the tight tolerance. Records missing title or price never
// match; the resolver skips this strategy for them.
func (s *ExactTitlePriceStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, _ *model.RetailerMatchProfile) *Match {
	if !record.HasTitle() || !record.HasPrice() {
		return nil
	}

	want := strings.ToLower(strings.TrimSpace(record.Title))

	var matches []Match
	for _, c := range candidates {
		if strings.ToLower(strings.TrimSpace(c.Title)) != want {
			continue
		}
		if !priceWithin(record.Price, c.Price, s.PriceTolerance) {
			continue
		}
		matches = append(matches, Match{
			Candidate:  c,
			Method:     model.MethodExactTitlePrice,
			Confidence: ConfidenceExactTitlePrice,
			Similarity: 1.0,
		})
	}

	return pickBest(matches)
}

// FuzzyTitlePriceStrategy matches on token-set title similarity combined with
// a tight price window. This is the decisive fallback for retailers that
// rewrite URLs and codes while keeping titles and prices nearly unchanged.
type FuzzyTitlePriceStrategy struct {
	SimilarityFloor float64
	PriceTolerance  float64
}

// Method returns the strategy identifier.
func (s *FuzzyTitlePriceStrategy) Method() model.MatchMethod { return model.MethodFuzzyTitlePrice }

// Evaluate matches candidates whose title similarity clears the floor and
// whose price is within the tight tolerance. Confidence scales with
// similarity and is clamped to the cap.
func (s *FuzzyTitlePriceStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, _ *model.RetailerMatchProfile) *Match {
	if !record.HasTitle() || !record.HasPrice() {
		return nil
	}

	var matches []Match
	for _, c := range candidates {
		if c.Title == "" {
			continue
		}
		if !priceWithin(record.Price, c.Price, s.PriceTolerance) {
			continue
		}

		sim := TokenSetRatio(record.Title, c.Title)
		if sim < s.SimilarityFloor {
			continue
		}

		matches = append(matches, Match{
			Candidate:  c,
			Method:     model.MethodFuzzyTitlePrice,
			Confidence: FuzzyConfidence(sim, s.SimilarityFloor),
			Similarity: sim,
		})
	}

	return pickBest(matches)
}

// FuzzyConfidence converts a title similarity into a match confidence:
// base + (similarity - floor) * scale, clamped to the cap. Similarity at the
// floor yields the base; a perfect match saturates at the cap.
func FuzzyConfidence(similarity, floor float64) float64 {
	conf := FuzzyConfidenceBase + (similarity-floor)*FuzzyConfidenceScale
	if conf > FuzzyConfidenceCap {
		conf = FuzzyConfidenceCap
	}
	return conf
}
