package cascade

import "shelfwatch/internal/model"

// ExactURLStrategy matches on byte-equal URL strings. The strongest possible
// signal: confidence 1.00.
type ExactURLStrategy struct{}

// Method returns the strategy identifier.
func (s *ExactURLStrategy) Method() model.MatchMethod { return model.MethodExactURL }

// Evaluate returns a match for the first candidate whose URL is byte-equal
// to the record's URL. URLs are unique per store, so ties cannot occur.
func (s *ExactURLStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, _ *model.RetailerMatchProfile) *Match {
	for _, c := range candidates {
		if c.URL == record.URL {
			return &Match{
				Candidate:  c,
				Method:     model.MethodExactURL,
				Confidence: ConfidenceExactURL,
				Similarity: 1.0,
			}
		}
	}
	return nil
}

// NormalizedURLStrategy matches URLs after stripping query strings and
// trailing slashes. Confidence 0.95.
type NormalizedURLStrategy struct{}

// Method returns the strategy identifier.
func (s *NormalizedURLStrategy) Method() model.MatchMethod { return model.MethodNormalizedURL }

// Evaluate matches candidates whose normalized URL equals the record's
// normalized URL.
func (s *NormalizedURLStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, _ *model.RetailerMatchProfile) *Match {
	want := NormalizeURL(record.URL)
	if want == "" {
		return nil
	}

	var matches []Match
	for _, c := range candidates {
		if NormalizeURL(c.URL) == want {
			matches = append(matches, Match{
				Candidate:  c,
				Method:     model.MethodNormalizedURL,
				Confidence: ConfidenceNormalizedURL,
				Similarity: 1.0,
			})
		}
	}

	return pickBest(matches)
}
