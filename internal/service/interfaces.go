// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"shelfwatch/internal/model"
)

// ProductStore is the query surface of the canonical product store used
// during resolution. Lookups return (nil, nil) when no product matches.
type ProductStore interface {
	FindByURL(ctx context.Context, url string) (*model.CanonicalProduct, error)
	FindByNormalizedURL(ctx context.Context, normalizedURL string) (*model.CanonicalProduct, error)
	FindByProductCode(ctx context.Context, retailer, code string) (*model.CanonicalProduct, error)
	FindByPriceWindow(ctx context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error)
	// FindByRetailerWithImages prefilters by price window; a negative
	// tolerance disables the price prefilter.
	FindByRetailerWithImages(ctx context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error)
}

// SnapshotStore holds the prior catalog scan's lightweight records, the first
// matching target before the canonical store.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, retailer string) ([]model.CatalogRecord, time.Time, error)
	ReplaceSnapshot(ctx context.Context, retailer string, records []model.CatalogRecord) error
}

// ProfileStore persists retailer match profiles. Get returns a
// default-initialized profile when no row exists for the retailer.
type ProfileStore interface {
	GetProfile(ctx context.Context, retailer string) (*model.RetailerMatchProfile, error)
	CommitProfile(ctx context.Context, profile *model.RetailerMatchProfile) error
	ListProfiles(ctx context.Context) ([]model.RetailerMatchProfile, error)
	// ResetProfile removes a retailer's learned profile so the next batch
	// starts from the defaults. A missing profile is not an error.
	ResetProfile(ctx context.Context, retailer string) error
}

// BatchStats summarizes one resolved scan batch.
type BatchStats struct {
	Duration            time.Duration
	Total               int
	Existing            int
	ConfirmedNew        int
	SuspectedDuplicates int
	Invalid             int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	ProductStore
	SnapshotStore
	ProfileStore

	// Product lifecycle operations. Creation happens on the downstream
	// extraction path, never during resolution.
	SaveProduct(ctx context.Context, product *model.CanonicalProduct) error
	UpdateLifecycleStage(ctx context.Context, url string, stage model.LifecycleStage) error
	ListProductsByStage(ctx context.Context, retailer string, stage model.LifecycleStage) ([]model.CanonicalProduct, error)

	// Batch completion markers guarantee exactly-once commits. CommitBatch
	// also promotes the scan's records to the retailer's baseline snapshot
	// in the same transaction.
	IsBatchCommitted(ctx context.Context, scanID string) (bool, error)
	CommitBatch(ctx context.Context, profile *model.RetailerMatchProfile, scanID string, stats BatchStats, records []model.CatalogRecord) error

	// Audit trail for `existing` resolutions.
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	GetAuditByScan(ctx context.Context, scanID string) ([]model.AuditEntry, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// AssessmentQueue is the collaborator that receives review tasks. Delivery is
// at-least-once; consumers must tolerate duplicate tasks for retried batches.
type AssessmentQueue interface {
	Enqueue(ctx context.Context, task *model.ReviewTask) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
