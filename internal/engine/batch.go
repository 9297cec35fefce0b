package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
	"shelfwatch/internal/service"
)

// Engine orchestrates scan batches: parallel resolution, outcome routing,
// and the staged, exactly-once profile commit.
type Engine struct {
	storage             service.Storage
	queue               service.AssessmentQueue
	cascade             *cascade.Cascade
	patterns            map[string]*regexp.Regexp
	bands               Bands
	tightPriceTolerance float64
	imagePriceTolerance float64
	workers             int
	dryRun              bool
}

// Config holds configuration options for the engine.
type Config struct {
	CodePatterns        map[string]*regexp.Regexp
	Cascade             cascade.Options
	Bands               Bands
	TightPriceTolerance float64
	ImagePriceTolerance float64
	Workers             int

	// DryRun stops a batch after routing: no audit rows, no profile commit,
	// no snapshot promotion. The returned outcome still reflects what the
	// commit would have written.
	DryRun bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Cascade:             cascade.DefaultOptions(),
		Bands:               DefaultBands(),
		TightPriceTolerance: cascade.DefaultTightPriceTolerance,
		ImagePriceTolerance: cascade.DefaultImagePriceTolerance,
		Workers:             8,
	}
}

// New creates an engine with the given dependencies.
func New(storage service.Storage, queue service.AssessmentQueue) *Engine {
	return NewWithConfig(storage, queue, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, queue service.AssessmentQueue, cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Engine{
		storage:             storage,
		queue:               queue,
		cascade:             cascade.New(cfg.Cascade),
		patterns:            cfg.CodePatterns,
		bands:               cfg.Bands,
		tightPriceTolerance: cfg.TightPriceTolerance,
		imagePriceTolerance: cfg.ImagePriceTolerance,
		workers:             workers,
		dryRun:              cfg.DryRun,
	}
}

// BatchOutcome reports a committed batch back to the caller.
type BatchOutcome struct {
	Profile *model.RetailerMatchProfile
	Stats   service.BatchStats
	Results []model.ResolutionResult
}

// ResolveScan runs one scan batch for one retailer. Resolution is read-only
// and parallel; routing and the profile commit happen afterwards, so a
// cancellation mid-flight leaves every store untouched. Re-running a
// committed scan fails with ErrBatchCommitted before any work is staged.
func (e *Engine) ResolveScan(ctx context.Context, retailer, scanID string, records []model.CatalogRecord, onProgress func(done int)) (*BatchOutcome, error) {
	if strings.TrimSpace(retailer) == "" {
		return nil, fmt.Errorf("%w: retailer", common.ErrInvalidRecord)
	}
	if strings.TrimSpace(scanID) == "" {
		return nil, fmt.Errorf("%w: scan ID", common.ErrInvalidRecord)
	}
	if len(records) == 0 {
		return nil, common.ErrNoRecords
	}

	started := time.Now()

	committed, err := e.storage.IsBatchCommitted(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to check batch marker: %w", err)
	}
	if committed {
		return nil, fmt.Errorf("%w: scan %s", common.ErrBatchCommitted, scanID)
	}

	profile, err := e.storage.GetProfile(ctx, retailer)
	if err != nil {
		return nil, fmt.Errorf("failed to load retailer profile: %w", err)
	}

	baseline, capturedAt, err := e.storage.GetSnapshot(ctx, retailer)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline snapshot: %w", err)
	}

	resolver := NewResolver(ResolverConfig{
		Products:            e.storage,
		Cascade:             e.cascade,
		Profile:             profile,
		CodePattern:         e.patterns[retailer],
		Baseline:            baseline,
		BaselineCapturedAt:  capturedAt,
		Bands:               e.bands,
		TightPriceTolerance: e.tightPriceTolerance,
		ImagePriceTolerance: e.imagePriceTolerance,
	})

	slog.Info("Starting scan batch",
		"retailer", retailer,
		"scan_id", scanID,
		"records", len(records),
		"baseline_records", len(baseline),
		"url_stability", profile.URLStabilityScore,
		"preferred_method", profile.PreferredMethod)

	// Parallel, read-only resolution phase. One invalid record does not fail
	// the batch; a store failure aborts it wholesale.
	results := make([]*model.ResolutionResult, len(records))
	invalid := make([]bool, len(records))

	var (
		progressMu sync.Mutex
		done       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range records {
		g.Go(func() error {
			result, resolveErr := resolver.Resolve(gctx, records[i])
			switch {
			case resolveErr == nil:
				results[i] = result
			case isInvalidRecord(resolveErr):
				invalid[i] = true
				slog.Warn("Rejected invalid record",
					"retailer", retailer,
					"index", i,
					"error", resolveErr)
			default:
				return resolveErr
			}

			if onProgress != nil {
				progressMu.Lock()
				done++
				onProgress(done)
				progressMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch aborted for retailer %s scan %s: %w", retailer, scanID, err)
	}

	// Routing phase: at-least-once task delivery, before the profile commit.
	// A dry run routes into whatever queue it was given but keeps the audit
	// log untouched.
	var auditLog AuditLog = e.storage
	if e.dryRun {
		auditLog = discardAudit{}
	}

	router := NewRouter(auditLog, e.queue)
	learner := NewLearner()
	stats := service.BatchStats{Total: len(records)}

	for i, result := range results {
		if invalid[i] {
			stats.Invalid++
			continue
		}

		if _, err := router.Route(ctx, scanID, result, records[i]); err != nil {
			return nil, fmt.Errorf("batch aborted for retailer %s scan %s: %w", retailer, scanID, err)
		}

		learner.Observe(result)

		switch result.Classification {
		case model.ClassificationExisting:
			stats.Existing++
		case model.ClassificationConfirmedNew:
			stats.ConfirmedNew++
		case model.ClassificationSuspectedDuplicate:
			stats.SuspectedDuplicates++
		}
	}

	// Commit phase: profile update, batch marker, and snapshot promotion in
	// one transaction.
	learner.Apply(profile)
	stats.Duration = time.Since(started)

	if e.dryRun {
		slog.Info("Dry run complete, nothing committed",
			"retailer", retailer,
			"scan_id", scanID,
			"existing", stats.Existing,
			"confirmed_new", stats.ConfirmedNew,
			"suspected_duplicates", stats.SuspectedDuplicates,
			"invalid", stats.Invalid)

		return &BatchOutcome{
			Profile: profile,
			Stats:   stats,
			Results: collectResults(results, invalid),
		}, nil
	}

	if err := e.storage.CommitBatch(ctx, profile, scanID, stats, validRecords(records, invalid)); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	slog.Info("Scan batch committed",
		"retailer", retailer,
		"scan_id", scanID,
		"existing", stats.Existing,
		"confirmed_new", stats.ConfirmedNew,
		"suspected_duplicates", stats.SuspectedDuplicates,
		"invalid", stats.Invalid,
		"url_stability", profile.URLStabilityScore,
		"duration", stats.Duration.Round(time.Millisecond))

	return &BatchOutcome{
		Profile: profile,
		Stats:   stats,
		Results: collectResults(results, invalid),
	}, nil
}

// discardAudit swallows audit entries during dry runs.
type discardAudit struct{}

func (discardAudit) AppendAudit(context.Context, *model.AuditEntry) error { return nil }

func isInvalidRecord(err error) bool {
	return errors.Is(err, common.ErrInvalidRecord)
}

func validRecords(records []model.CatalogRecord, invalid []bool) []model.CatalogRecord {
	out := make([]model.CatalogRecord, 0, len(records))
	for i, rec := range records {
		if !invalid[i] {
			out = append(out, rec)
		}
	}
	return out
}

func collectResults(results []*model.ResolutionResult, invalid []bool) []model.ResolutionResult {
	out := make([]model.ResolutionResult, 0, len(results))
	for i, r := range results {
		if !invalid[i] && r != nil {
			out = append(out, *r)
		}
	}
	return out
}
