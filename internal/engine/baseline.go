package engine

import (
	"time"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/model"
)

// baselineIndex holds the prior scan's records indexed for the cascade's
// lookup patterns. Built once per batch and read-only afterwards, so it is
// safe for concurrent resolution workers.
type baselineIndex struct {
	urlIndex    map[string]cascade.Candidate
	normIndex   map[string][]cascade.Candidate
	codeIndex   map[string][]cascade.Candidate
	records     []cascade.Candidate
	imageBacked []cascade.Candidate
}

func newBaselineIndex(records []model.CatalogRecord, capturedAt time.Time) *baselineIndex {
	idx := &baselineIndex{
		urlIndex:  make(map[string]cascade.Candidate, len(records)),
		normIndex: make(map[string][]cascade.Candidate),
		codeIndex: make(map[string][]cascade.Candidate),
	}

	for _, rec := range records {
		if rec.URL == "" {
			continue
		}

		c := cascade.CandidateFromRecord(rec, capturedAt)
		idx.records = append(idx.records, c)
		idx.urlIndex[rec.URL] = c

		norm := cascade.NormalizeURL(rec.URL)
		idx.normIndex[norm] = append(idx.normIndex[norm], c)

		if rec.ProductCode != "" {
			idx.codeIndex[rec.ProductCode] = append(idx.codeIndex[rec.ProductCode], c)
		}
		if len(rec.ImageURLs) > 0 {
			idx.imageBacked = append(idx.imageBacked, c)
		}
	}

	return idx
}

func (b *baselineIndex) byURL(url string) []cascade.Candidate {
	if c, ok := b.urlIndex[url]; ok {
		return []cascade.Candidate{c}
	}
	return nil
}

func (b *baselineIndex) byNormalizedURL(norm string) []cascade.Candidate {
	return append([]cascade.Candidate(nil), b.normIndex[norm]...)
}

func (b *baselineIndex) byProductCode(code string) []cascade.Candidate {
	return append([]cascade.Candidate(nil), b.codeIndex[code]...)
}

func (b *baselineIndex) all() []cascade.Candidate {
	return append([]cascade.Candidate(nil), b.records...)
}

func (b *baselineIndex) withImages() []cascade.Candidate {
	return append([]cascade.Candidate(nil), b.imageBacked...)
}
