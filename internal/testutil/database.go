// Package testutil provides shared helpers for tests that need a real
// storage layer or canned catalog data.
package testutil

import (
	"context"
	"testing"
	"time"

	"shelfwatch/internal/model"
	"shelfwatch/internal/storage"
)

// TestDB wraps an in-memory storage instance with seeding helpers.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database. Cleanup is registered
// automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedBaseline replaces a retailer's baseline snapshot, failing the test on
// error.
func (db *TestDB) SeedBaseline(retailer string, records []model.CatalogRecord) {
	db.t.Helper()

	if err := db.Storage.ReplaceSnapshot(context.Background(), retailer, records); err != nil {
		db.t.Fatalf("failed to seed baseline for %s: %v", retailer, err)
	}
}

// SeedProducts saves canonical products, failing the test on error.
func (db *TestDB) SeedProducts(products ...*model.CanonicalProduct) {
	db.t.Helper()

	ctx := context.Background()
	for _, p := range products {
		if err := db.Storage.SaveProduct(ctx, p); err != nil {
			db.t.Fatalf("failed to seed product %s: %v", p.URL, err)
		}
	}
}

// Record builds a catalog record with the common fields filled in.
func Record(retailer, url, title string, price float64) model.CatalogRecord {
	return model.CatalogRecord{
		URL:      url,
		Retailer: retailer,
		Title:    title,
		Price:    &price,
	}
}

// Product builds an accepted canonical product with the common fields filled
// in.
func Product(retailer, url, title string, price float64) *model.CanonicalProduct {
	return &model.CanonicalProduct{
		URL:            url,
		Retailer:       retailer,
		Title:          title,
		Price:          &price,
		LifecycleStage: model.StageAccepted,
		LastUpdated:    time.Now(),
	}
}

// PriceOf returns a pointer to the given price, for record literals.
func PriceOf(v float64) *float64 {
	return &v
}
