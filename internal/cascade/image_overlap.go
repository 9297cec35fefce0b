package cascade

import "shelfwatch/internal/model"

// ImageOverlapStrategy is the last-resort match: the fraction of the incoming
// record's image URLs also present on a stored candidate. Candidates are
// prefiltered by the caller to a coarse price window. Confidence depends on
// how consistent the retailer's CDN paths have proven across scans.
type ImageOverlapStrategy struct {
	MinOverlap float64
}

// Method returns the strategy identifier.
func (s *ImageOverlapStrategy) Method() model.MatchMethod { return model.MethodImageOverlap }

// Evaluate matches candidates whose image set covers at least MinOverlap of
// the record's images. The overlap ratio is |intersection| / |incoming set|.
func (s *ImageOverlapStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, profile *model.RetailerMatchProfile) *Match {
	if !record.HasImages() {
		return nil
	}

	incoming := make(map[string]bool, len(record.ImageURLs))
	for _, u := range record.ImageURLs {
		incoming[u] = true
	}

	var matches []Match
	for _, c := range candidates {
		if len(c.ImageURLs) == 0 {
			continue
		}

		shared := 0
		for _, u := range c.ImageURLs {
			if incoming[u] {
				shared++
			}
		}

		overlap := float64(shared) / float64(len(incoming))
		if overlap < s.MinOverlap {
			continue
		}

		matches = append(matches, Match{
			Candidate:    c,
			Method:       model.MethodImageOverlap,
			Confidence:   imageConfidence(overlap, profile),
			Similarity:   overlap,
			ImageOverlap: overlap,
		})
	}

	return pickBest(matches)
}

// imageConfidence scores an overlap ratio. Retailers whose image paths churn
// (low consistency score) get a lower band: the same overlap is weaker
// evidence when the CDN rewrites URLs between scans.
func imageConfidence(overlap float64, profile *model.RetailerMatchProfile) float64 {
	if profile != nil && profile.ImageConsistencyScore < ImageReliabilityCutoff {
		return ImageConfidenceBaseUnreliable + overlap*ImageConfidenceScaleUnreliable
	}
	return ImageConfidenceBaseReliable + overlap*ImageConfidenceScaleReliable
}
