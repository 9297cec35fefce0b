// Package engine implements the catalog resolution engine: the profile-driven
// match cascade, the per-batch profile learner, and the outcome router.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
	"shelfwatch/internal/service"
)

// Bands holds the classification thresholds applied to the best match
// confidence. The relative ordering of the three bands is fixed; the lower
// boundary is retailer-overridable via the profile's confidence threshold.
type Bands struct {
	ExistingFloor       float64
	ConfidenceThreshold float64
}

// DefaultBands returns the default classification thresholds.
func DefaultBands() Bands {
	return Bands{
		ExistingFloor:       0.95,
		ConfidenceThreshold: model.DefaultConfidenceThreshold,
	}
}

// Resolver classifies one catalog record at a time against the baseline
// snapshot and the canonical product store. Resolution is read-only: the
// resolver never writes to either store.
type Resolver struct {
	products            service.ProductStore
	baseline            *baselineIndex
	cascade             *cascade.Cascade
	profile             *model.RetailerMatchProfile
	codePattern         *regexp.Regexp
	bands               Bands
	imagePriceTolerance float64
	tightPriceTolerance float64
}

// ResolverConfig wires a resolver for one retailer's batch.
type ResolverConfig struct {
	Products            service.ProductStore
	Cascade             *cascade.Cascade
	Profile             *model.RetailerMatchProfile
	CodePattern         *regexp.Regexp
	Baseline            []model.CatalogRecord
	BaselineCapturedAt  time.Time
	Bands               Bands
	TightPriceTolerance float64
	ImagePriceTolerance float64
}

// NewResolver creates a resolver over a baseline snapshot and the canonical
// product store.
func NewResolver(cfg ResolverConfig) *Resolver {
	bands := cfg.Bands
	if bands.ExistingFloor == 0 {
		bands = DefaultBands()
	}

	tight := cfg.TightPriceTolerance
	if tight == 0 {
		tight = cascade.DefaultTightPriceTolerance
	}
	imageTol := cfg.ImagePriceTolerance
	if imageTol == 0 {
		imageTol = cascade.DefaultImagePriceTolerance
	}

	return &Resolver{
		products:            cfg.Products,
		baseline:            newBaselineIndex(cfg.Baseline, cfg.BaselineCapturedAt),
		cascade:             cfg.Cascade,
		profile:             cfg.Profile,
		codePattern:         cfg.CodePattern,
		bands:               bands,
		tightPriceTolerance: tight,
		imagePriceTolerance: imageTol,
	}
}

// Resolve classifies a catalog record. A record without a URL is rejected
// with ErrInvalidRecord before entering the cascade; missing title or price
// narrows the cascade rather than failing it.
func (r *Resolver) Resolve(ctx context.Context, record model.CatalogRecord) (*model.ResolutionResult, error) {
	if strings.TrimSpace(record.URL) == "" {
		return nil, fmt.Errorf("%w: missing url", common.ErrInvalidRecord)
	}

	if record.ProductCode == "" && r.codePattern != nil {
		record.ProductCode = cascade.ExtractProductCode(r.codePattern, record.URL)
	}

	var missing []string
	if !record.HasTitle() {
		missing = append(missing, "title")
	}
	if !record.HasPrice() {
		missing = append(missing, "price")
	}

	for _, strategy := range r.cascade.OrderFor(r.profile) {
		if skipForMissingSignals(strategy.Method(), record) {
			continue
		}

		candidates, err := r.candidatesFor(ctx, strategy.Method(), record)
		if err != nil {
			return nil, err
		}

		match := strategy.Evaluate(record, candidates, r.profile)
		if match == nil {
			continue
		}

		return r.resultFor(record, match, missing), nil
	}

	return &model.ResolutionResult{
		Classification: model.ClassificationConfirmedNew,
		Method:         model.MethodNone,
		Confidence:     0.0,
		MissingSignals: missing,
	}, nil
}

// skipForMissingSignals narrows the cascade for degraded records: title and
// price strategies need both signals, image overlap needs images.
func skipForMissingSignals(method model.MatchMethod, record model.CatalogRecord) bool {
	switch method {
	case model.MethodExactTitlePrice, model.MethodFuzzyTitlePrice:
		return !record.HasTitle() || !record.HasPrice()
	case model.MethodImageOverlap:
		return !record.HasImages()
	}
	return false
}

func (r *Resolver) resultFor(record model.CatalogRecord, match *cascade.Match, missing []string) *model.ResolutionResult {
	classification := r.classify(match.Confidence)

	result := &model.ResolutionResult{
		Classification: classification,
		Method:         match.Method,
		Confidence:     match.Confidence,
		MissingSignals: missing,
		ImageOverlap:   match.ImageOverlap,
	}

	if classification != model.ClassificationConfirmedNew {
		result.Matched = match.Summary()
		result.URLOutcome = cascade.URLOutcomeFor(record.URL, match.Candidate.URL)
	}

	return result
}

// classify maps a match confidence into one of the three bands. The lower
// boundary comes from the retailer profile when set.
func (r *Resolver) classify(confidence float64) model.Classification {
	threshold := r.bands.ConfidenceThreshold
	if r.profile != nil && r.profile.ConfidenceThreshold > 0 && r.profile.ConfidenceThreshold < r.bands.ExistingFloor {
		threshold = r.profile.ConfidenceThreshold
	}

	switch {
	case confidence >= r.bands.ExistingFloor:
		return model.ClassificationExisting
	case confidence >= threshold:
		return model.ClassificationSuspectedDuplicate
	default:
		return model.ClassificationConfirmedNew
	}
}

// candidatesFor gathers the candidate set for one strategy: baseline snapshot
// entries first, then targeted canonical store lookups.
func (r *Resolver) candidatesFor(ctx context.Context, method model.MatchMethod, record model.CatalogRecord) ([]cascade.Candidate, error) {
	switch method {
	case model.MethodExactURL:
		candidates := r.baseline.byURL(record.URL)
		product, err := r.products.FindByURL(ctx, record.URL)
		if err != nil {
			return nil, err
		}
		return appendProduct(candidates, product), nil

	case model.MethodNormalizedURL:
		norm := cascade.NormalizeURL(record.URL)
		candidates := r.baseline.byNormalizedURL(norm)
		product, err := r.products.FindByNormalizedURL(ctx, norm)
		if err != nil {
			return nil, err
		}
		return appendProduct(candidates, product), nil

	case model.MethodProductCode:
		if record.ProductCode == "" {
			return nil, nil
		}
		candidates := r.baseline.byProductCode(record.ProductCode)
		product, err := r.products.FindByProductCode(ctx, record.Retailer, record.ProductCode)
		if err != nil {
			return nil, err
		}
		return appendProduct(candidates, product), nil

	case model.MethodExactTitlePrice, model.MethodFuzzyTitlePrice:
		candidates := r.baseline.all()
		if record.HasPrice() {
			products, err := r.products.FindByPriceWindow(ctx, record.Retailer, *record.Price, r.tightPriceTolerance)
			if err != nil {
				return nil, err
			}
			candidates = appendProducts(candidates, products)
		}
		return candidates, nil

	case model.MethodImageOverlap:
		candidates := r.baseline.withImages()
		price := 0.0
		tolerance := -1.0 // no price prefilter for price-less records
		if record.HasPrice() {
			price = *record.Price
			tolerance = r.imagePriceTolerance
		}
		products, err := r.products.FindByRetailerWithImages(ctx, record.Retailer, price, tolerance)
		if err != nil {
			return nil, err
		}
		return appendProducts(candidates, products), nil
	}

	return nil, nil
}

func appendProduct(candidates []cascade.Candidate, product *model.CanonicalProduct) []cascade.Candidate {
	if product == nil {
		return candidates
	}
	return append(candidates, cascade.CandidateFromProduct(*product))
}

func appendProducts(candidates []cascade.Candidate, products []model.CanonicalProduct) []cascade.Candidate {
	for _, p := range products {
		candidates = append(candidates, cascade.CandidateFromProduct(p))
	}
	return candidates
}
