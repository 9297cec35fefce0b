package cascade

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwatch/internal/model"
)

func priceOf(v float64) *float64 {
	return &v
}

func record(url, title string, price *float64) model.CatalogRecord {
	return model.CatalogRecord{
		URL:      url,
		Retailer: "modcloth",
		Title:    title,
		Price:    price,
	}
}

func candidate(url, title string, price *float64) Candidate {
	return Candidate{
		URL:      url,
		Retailer: "modcloth",
		Title:    title,
		Price:    price,
		Source:   SourceBaseline,
	}
}

func TestExactURLStrategy(t *testing.T) {
	s := &ExactURLStrategy{}
	candidates := []Candidate{
		candidate("https://shop.example.com/dress-1", "Dress One", priceOf(49.99)),
		candidate("https://shop.example.com/dress-2", "Dress Two", priceOf(59.99)),
	}

	t.Run("byte equal URL matches", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/dress-2", "", nil), candidates, nil)
		require.NotNil(t, match)
		assert.Equal(t, model.MethodExactURL, match.Method)
		assert.Equal(t, ConfidenceExactURL, match.Confidence)
		assert.Equal(t, "https://shop.example.com/dress-2", match.Candidate.URL)
	})

	t.Run("query string breaks byte equality", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/dress-2?ref=home", "", nil), candidates, nil)
		assert.Nil(t, match)
	})
}

func TestNormalizedURLStrategy(t *testing.T) {
	s := &NormalizedURLStrategy{}
	candidates := []Candidate{
		candidate("https://shop.example.com/dress-1/", "Dress One", priceOf(49.99)),
	}

	t.Run("tracking params stripped", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/dress-1?utm_source=feed", "", nil), candidates, nil)
		require.NotNil(t, match)
		assert.Equal(t, model.MethodNormalizedURL, match.Method)
		assert.Equal(t, ConfidenceNormalizedURL, match.Confidence)
	})

	t.Run("different path does not match", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/dress-9", "", nil), candidates, nil)
		assert.Nil(t, match)
	})
}

func TestExtractProductCode(t *testing.T) {
	pattern := regexp.MustCompile(`/p/(\d+)`)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "capture group wins", url: "https://shop.example.com/p/99871", want: "99871"},
		{name: "no match", url: "https://shop.example.com/dress-1", want: ""},
		{name: "empty url", url: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractProductCode(pattern, tt.url))
		})
	}

	t.Run("nil pattern", func(t *testing.T) {
		assert.Equal(t, "", ExtractProductCode(nil, "https://shop.example.com/p/99871"))
	})

	t.Run("whole match without group", func(t *testing.T) {
		assert.Equal(t, "SKU-42", ExtractProductCode(regexp.MustCompile(`SKU-\d+`), "https://shop.example.com/SKU-42"))
	})
}

func TestProductCodeStrategy(t *testing.T) {
	s := &ProductCodeStrategy{}

	withCode := candidate("https://shop.example.com/old-path", "Dress One", priceOf(49.99))
	withCode.ProductCode = "99871"
	otherRetailer := candidate("https://other.example.com/p/99871", "Dress One", priceOf(49.99))
	otherRetailer.Retailer = "othershop"
	otherRetailer.ProductCode = "99871"

	rec := record("https://shop.example.com/new-path", "", nil)
	rec.ProductCode = "99871"

	t.Run("same retailer same code matches", func(t *testing.T) {
		match := s.Evaluate(rec, []Candidate{withCode, otherRetailer}, nil)
		require.NotNil(t, match)
		assert.Equal(t, ConfidenceProductCode, match.Confidence)
		assert.Equal(t, "https://shop.example.com/old-path", match.Candidate.URL)
	})

	t.Run("code never crosses retailers", func(t *testing.T) {
		match := s.Evaluate(rec, []Candidate{otherRetailer}, nil)
		assert.Nil(t, match)
	})

	t.Run("record without code never matches", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/new-path", "", nil), []Candidate{withCode}, nil)
		assert.Nil(t, match)
	})

	t.Run("empty codes are not equal", func(t *testing.T) {
		blank := candidate("https://shop.example.com/blank", "Dress", nil)
		r := record("https://shop.example.com/x", "", nil)
		r.ProductCode = ""
		assert.Nil(t, s.Evaluate(r, []Candidate{blank}, nil))
	})
}

func TestExactTitlePriceStrategy(t *testing.T) {
	s := &ExactTitlePriceStrategy{PriceTolerance: 1.00}
	candidates := []Candidate{
		candidate("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
	}

	tests := []struct {
		name    string
		record  model.CatalogRecord
		matches bool
	}{
		{
			name:    "case insensitive title within tolerance",
			record:  record("https://shop.example.com/p/1", "BURGUNDY MIDI DRESS", priceOf(50.50)),
			matches: true,
		},
		{
			name:    "price difference at tolerance is out",
			record:  record("https://shop.example.com/p/1", "Burgundy Midi Dress", priceOf(50.99)),
			matches: false,
		},
		{
			name:    "different title",
			record:  record("https://shop.example.com/p/1", "Navy Midi Dress", priceOf(49.99)),
			matches: false,
		},
		{
			name:    "missing price",
			record:  record("https://shop.example.com/p/1", "Burgundy Midi Dress", nil),
			matches: false,
		},
		{
			name:    "missing title",
			record:  record("https://shop.example.com/p/1", "", priceOf(49.99)),
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := s.Evaluate(tt.record, candidates, nil)
			if tt.matches {
				require.NotNil(t, match)
				assert.Equal(t, ConfidenceExactTitlePrice, match.Confidence)
			} else {
				assert.Nil(t, match)
			}
		})
	}
}

func TestFuzzyTitlePriceStrategy(t *testing.T) {
	s := &FuzzyTitlePriceStrategy{SimilarityFloor: 0.90, PriceTolerance: 1.00}
	candidates := []Candidate{
		candidate("https://shop.example.com/dress-1", "Burgundy Midi Wrap Dress", priceOf(49.99)),
	}

	t.Run("reordered title matches at cap", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/p/1", "Midi Wrap Dress Burgundy", priceOf(49.99)), candidates, nil)
		require.NotNil(t, match)
		assert.Equal(t, model.MethodFuzzyTitlePrice, match.Method)
		assert.InDelta(t, FuzzyConfidenceCap, match.Confidence, 1e-9)
		assert.InDelta(t, 1.0, match.Similarity, 1e-9)
	})

	t.Run("similar title below floor does not match", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/p/1", "Burgundy Gown", priceOf(49.99)), candidates, nil)
		assert.Nil(t, match)
	})

	t.Run("price outside tolerance blocks a perfect title", func(t *testing.T) {
		match := s.Evaluate(record("https://shop.example.com/p/1", "Burgundy Midi Wrap Dress", priceOf(59.99)), candidates, nil)
		assert.Nil(t, match)
	})
}

func TestImageOverlapStrategy(t *testing.T) {
	s := &ImageOverlapStrategy{MinOverlap: 0.50}

	stored := candidate("https://shop.example.com/dress-1", "Dress One", priceOf(49.99))
	stored.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}

	rec := record("https://shop.example.com/p/1", "", nil)
	rec.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg", "https://cdn.example.com/c.jpg", "https://cdn.example.com/d.jpg"}

	t.Run("overlap ratio uses the incoming set", func(t *testing.T) {
		match := s.Evaluate(rec, []Candidate{stored}, nil)
		require.NotNil(t, match)
		assert.InDelta(t, 0.5, match.ImageOverlap, 1e-9)
	})

	t.Run("below minimum overlap", func(t *testing.T) {
		sparse := record("https://shop.example.com/p/1", "", nil)
		sparse.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/x.jpg", "https://cdn.example.com/y.jpg"}
		assert.Nil(t, s.Evaluate(sparse, []Candidate{stored}, nil))
	})

	t.Run("no images skips", func(t *testing.T) {
		assert.Nil(t, s.Evaluate(record("https://shop.example.com/p/1", "", nil), []Candidate{stored}, nil))
	})

	t.Run("confidence band follows image consistency", func(t *testing.T) {
		full := record("https://shop.example.com/p/1", "", nil)
		full.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}

		reliable := model.NewRetailerMatchProfile("modcloth")
		match := s.Evaluate(full, []Candidate{stored}, reliable)
		require.NotNil(t, match)
		assert.InDelta(t, ImageConfidenceBaseReliable+1.0*ImageConfidenceScaleReliable, match.Confidence, 1e-9)

		unreliable := model.NewRetailerMatchProfile("modcloth")
		unreliable.ImageConsistencyScore = 0.30
		match = s.Evaluate(full, []Candidate{stored}, unreliable)
		require.NotNil(t, match)
		assert.InDelta(t, ImageConfidenceBaseUnreliable+1.0*ImageConfidenceScaleUnreliable, match.Confidence, 1e-9)
	})
}

func TestPickBest(t *testing.T) {
	older := candidate("https://shop.example.com/old", "Dress", priceOf(10))
	older.LastUpdated = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := candidate("https://shop.example.com/new", "Dress", priceOf(10))
	newer.LastUpdated = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("higher similarity wins", func(t *testing.T) {
		best := pickBest([]Match{
			{Candidate: newer, Similarity: 0.91},
			{Candidate: older, Similarity: 0.97},
		})
		require.NotNil(t, best)
		assert.Equal(t, older.URL, best.Candidate.URL)
	})

	t.Run("equal similarity breaks ties by recency", func(t *testing.T) {
		best := pickBest([]Match{
			{Candidate: older, Similarity: 0.95},
			{Candidate: newer, Similarity: 0.95},
		})
		require.NotNil(t, best)
		assert.Equal(t, newer.URL, best.Candidate.URL)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, pickBest(nil))
	})
}
