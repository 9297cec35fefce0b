package engine

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

func priceOf(v float64) *float64 {
	return &v
}

func baselineRecord(url, title string, price *float64) model.CatalogRecord {
	return model.CatalogRecord{
		URL:      url,
		Retailer: "modcloth",
		Title:    title,
		Price:    price,
	}
}

func newTestResolver(t *testing.T, cfg ResolverConfig) *Resolver {
	t.Helper()

	if cfg.Products == nil {
		cfg.Products = &mockProducts{}
	}
	if cfg.Cascade == nil {
		cfg.Cascade = cascade.New(cascade.DefaultOptions())
	}
	if cfg.Profile == nil {
		cfg.Profile = model.NewRetailerMatchProfile("modcloth")
	}
	if cfg.BaselineCapturedAt.IsZero() {
		cfg.BaselineCapturedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewResolver(cfg)
}

func TestResolverRejectsRecordWithoutURL(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{})

	_, err := r.Resolve(context.Background(), model.CatalogRecord{Retailer: "modcloth", Title: "Dress"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidRecord))
}

func TestResolverExactURL(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
		},
	})

	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)))
	require.NoError(t, err)

	assert.Equal(t, model.ClassificationExisting, result.Classification)
	assert.Equal(t, model.MethodExactURL, result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, model.URLStable, result.URLOutcome)
	require.NotNil(t, result.Matched)
	assert.Equal(t, "https://shop.example.com/dress-1", result.Matched.URL)
}

func TestResolverNormalizedURL(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
		},
	})

	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/dress-1?utm_source=feed", "Burgundy Midi Dress", priceOf(49.99)))
	require.NoError(t, err)

	assert.Equal(t, model.ClassificationExisting, result.Classification)
	assert.Equal(t, model.MethodNormalizedURL, result.Method)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, model.URLNormalized, result.URLOutcome)
}

func TestResolverProductCodeFromPattern(t *testing.T) {
	// The canonical store has the product under its old URL; the scan carries
	// a rewritten URL with the same embedded code.
	products := &mockProducts{products: []model.CanonicalProduct{{
		URL:            "https://shop.example.com/old/p/99871",
		Retailer:       "modcloth",
		Title:          "Burgundy Midi Dress",
		ProductCode:    "99871",
		Price:          priceOf(49.99),
		LifecycleStage: model.StageAccepted,
		LastUpdated:    time.Now(),
	}}}

	r := newTestResolver(t, ResolverConfig{
		Products:    products,
		CodePattern: regexp.MustCompile(`/p/(\d+)`),
	})

	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/new/p/99871", "", nil))
	require.NoError(t, err)

	assert.Equal(t, model.MethodProductCode, result.Method)
	assert.InDelta(t, 0.90, result.Confidence, 1e-9)
	assert.Equal(t, model.ClassificationSuspectedDuplicate, result.Classification)
	assert.Equal(t, model.URLChanged, result.URLOutcome)
	assert.ElementsMatch(t, []string{"title", "price"}, result.MissingSignals)
}

func TestResolverFuzzyTitlePrice(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Wrap Dress", priceOf(49.99)),
		},
	})

	// Rewritten URL, reordered title, same price: decisive fuzzy match at the
	// confidence cap, which lands in the existing band.
	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/p/77120", "Midi Wrap Dress Burgundy", priceOf(49.99)))
	require.NoError(t, err)

	assert.Equal(t, model.MethodFuzzyTitlePrice, result.Method)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, model.ClassificationExisting, result.Classification)
}

func TestResolverConfirmedNew(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
		},
	})

	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/kettle-9", "Stainless Steel Kettle", priceOf(89.00)))
	require.NoError(t, err)

	assert.Equal(t, model.ClassificationConfirmedNew, result.Classification)
	assert.Equal(t, model.MethodNone, result.Method)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Nil(t, result.Matched)
	assert.Empty(t, result.URLOutcome)
}

func TestResolverDegradedRecordNarrowsCascade(t *testing.T) {
	// Title and price are missing, so only the URL, code, and image strategies
	// run; a title-identical baseline entry at a different URL cannot match.
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
		},
	})

	result, err := r.Resolve(context.Background(), model.CatalogRecord{
		URL:      "https://shop.example.com/p/55555",
		Retailer: "modcloth",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ClassificationConfirmedNew, result.Classification)
	assert.ElementsMatch(t, []string{"title", "price"}, result.MissingSignals)
}

func TestResolverLowStabilitySkipsURLStrategies(t *testing.T) {
	profile := model.NewRetailerMatchProfile("modcloth")
	profile.URLStabilityScore = 0.30

	r := newTestResolver(t, ResolverConfig{
		Profile: profile,
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)),
		},
	})

	// The byte-equal URL is in the baseline, but a low-stability retailer
	// resolves through title matching instead.
	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress", priceOf(49.99)))
	require.NoError(t, err)

	assert.Equal(t, model.MethodExactTitlePrice, result.Method)
	assert.Equal(t, model.ClassificationExisting, result.Classification)
}

func TestResolverProfileThresholdOverride(t *testing.T) {
	// A stricter per-retailer threshold pushes a code match below the
	// suspected-duplicate band.
	profile := model.NewRetailerMatchProfile("modcloth")
	profile.ConfidenceThreshold = 0.92

	products := &mockProducts{products: []model.CanonicalProduct{{
		URL:            "https://shop.example.com/old/p/99871",
		Retailer:       "modcloth",
		ProductCode:    "99871",
		LifecycleStage: model.StageAccepted,
	}}}

	r := newTestResolver(t, ResolverConfig{
		Products:    products,
		Profile:     profile,
		CodePattern: regexp.MustCompile(`/p/(\d+)`),
	})

	result, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/new/p/99871", "", nil))
	require.NoError(t, err)

	assert.Equal(t, model.MethodProductCode, result.Method)
	assert.Equal(t, model.ClassificationConfirmedNew, result.Classification)
	assert.Nil(t, result.Matched)
}

func TestResolverStoreErrorAborts(t *testing.T) {
	storeErr := errors.New("connection lost")
	r := newTestResolver(t, ResolverConfig{
		Products: &mockProducts{err: storeErr},
	})

	_, err := r.Resolve(context.Background(), baselineRecord("https://shop.example.com/dress-1", "Dress", priceOf(10)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
}

func TestResolverImageOverlapFallback(t *testing.T) {
	stored := baselineRecord("https://shop.example.com/dress-1", "", nil)
	stored.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}

	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{stored},
	})

	incoming := model.CatalogRecord{
		URL:       "https://shop.example.com/p/11111",
		Retailer:  "modcloth",
		ImageURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}

	result, err := r.Resolve(context.Background(), incoming)
	require.NoError(t, err)

	assert.Equal(t, model.MethodImageOverlap, result.Method)
	assert.InDelta(t, 1.0, result.ImageOverlap, 1e-9)
	// Full overlap with a reliable image profile: 0.75 + 1.0*0.20.
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, model.ClassificationExisting, result.Classification)
}

func TestResolverIsIdempotent(t *testing.T) {
	// Two near-tied fuzzy candidates force the tie-break path; against an
	// unchanged store the same record must resolve identically every time.
	r := newTestResolver(t, ResolverConfig{
		Baseline: []model.CatalogRecord{
			baselineRecord("https://shop.example.com/dress-1", "Burgundy Midi Dress Velvet", priceOf(49.99)),
			baselineRecord("https://shop.example.com/dress-2", "Burgundy Midi Dress Satin", priceOf(49.99)),
		},
	})

	record := baselineRecord("https://shop.example.com/dress-new", "Midi Burgundy Dress", priceOf(49.99))
	ctx := context.Background()

	first, err := r.Resolve(ctx, record)
	require.NoError(t, err)
	require.NotNil(t, first.Matched)

	for i := 0; i < 50; i++ {
		result, err := r.Resolve(ctx, record)
		require.NoError(t, err)

		assert.Equal(t, first.Classification, result.Classification)
		assert.Equal(t, first.Method, result.Method)
		assert.Equal(t, first.Confidence, result.Confidence)
		assert.Equal(t, first.URLOutcome, result.URLOutcome)
		require.NotNil(t, result.Matched)
		assert.Equal(t, first.Matched.URL, result.Matched.URL)
	}
}

func TestClassifyBandBoundaries(t *testing.T) {
	r := newTestResolver(t, ResolverConfig{})

	tests := []struct {
		name       string
		confidence float64
		want       model.Classification
	}{
		{name: "at the existing floor", confidence: 0.95, want: model.ClassificationExisting},
		{name: "just below the existing floor", confidence: 0.9499, want: model.ClassificationSuspectedDuplicate},
		{name: "at the confidence threshold", confidence: 0.85, want: model.ClassificationSuspectedDuplicate},
		{name: "just below the threshold", confidence: 0.8499, want: model.ClassificationConfirmedNew},
		{name: "zero", confidence: 0.0, want: model.ClassificationConfirmedNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.classify(tt.confidence))
		})
	}
}
