package cascade

import (
	"regexp"

	"shelfwatch/internal/model"
)

// ExtractProductCode pulls a retailer-specific product code out of a URL
// using the retailer's configured pattern. When the pattern has a capture
// group the first group is the code; otherwise the whole match is used.
// Returns "" when the pattern does not match.
func ExtractProductCode(pattern *regexp.Regexp, url string) string {
	if pattern == nil || url == "" {
		return ""
	}

	groups := pattern.FindStringSubmatch(url)
	switch {
	case len(groups) > 1:
		return groups[1]
	case len(groups) == 1:
		return groups[0]
	}
	return ""
}

// ProductCodeStrategy matches on the retailer-specific product code derived
// from the URL. Codes survive many URL rewrites, so this catches moved pages.
// Confidence 0.90.
type ProductCodeStrategy struct{}

// Method returns the strategy identifier.
func (s *ProductCodeStrategy) Method() model.MatchMethod { return model.MethodProductCode }

// Evaluate matches candidates from the same retailer carrying an identical
// product code. Records without a code never match.
func (s *ProductCodeStrategy) Evaluate(record model.CatalogRecord, candidates []Candidate, _ *model.RetailerMatchProfile) *Match {
	if record.ProductCode == "" {
		return nil
	}

	var matches []Match
	for _, c := range candidates {
		if c.Retailer == record.Retailer && c.ProductCode != "" && c.ProductCode == record.ProductCode {
			matches = append(matches, Match{
				Candidate:  c,
				Method:     model.MethodProductCode,
				Confidence: ConfidenceProductCode,
				Similarity: 1.0,
			})
		}
	}

	return pickBest(matches)
}
