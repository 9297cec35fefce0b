package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

// encodeImageURLs serializes an image URL list for storage. Empty lists are
// stored as NULL so the with-images index query stays simple.
func encodeImageURLs(urls []string) (any, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image URLs: %w", err)
	}
	return string(data), nil
}

func decodeImageURLs(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw.String), &urls); err != nil {
		return nil, fmt.Errorf("failed to decode image URLs: %w", err)
	}
	return urls, nil
}

const productColumns = `url, retailer, title, price, product_code, image_urls, lifecycle_stage, last_updated`

func scanProduct(row interface{ Scan(...any) error }) (*model.CanonicalProduct, error) {
	var (
		p      model.CanonicalProduct
		title  sql.NullString
		price  sql.NullFloat64
		code   sql.NullString
		images sql.NullString
	)

	err := row.Scan(&p.URL, &p.Retailer, &title, &price, &code, &images, &p.LifecycleStage, &p.LastUpdated)
	if err != nil {
		return nil, err
	}

	p.Title = title.String
	p.ProductCode = code.String
	if price.Valid {
		v := price.Float64
		p.Price = &v
	}

	p.ImageURLs, err = decodeImageURLs(images)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// FindByURL retrieves a product by its exact URL. Returns (nil, nil) when no
// product exists for the URL.
func (s *SQLiteStorage) FindByURL(ctx context.Context, url string) (*model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(url, "url"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE url = ?
	`, url)

	return s.oneProduct(row)
}

// FindByNormalizedURL retrieves a product whose URL normalizes to the given
// value. Returns (nil, nil) when absent; the most recently updated product
// wins if several URLs normalize identically.
func (s *SQLiteStorage) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedURL, "normalizedURL"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE normalized_url = ?
		ORDER BY last_updated DESC
		LIMIT 1
	`, normalizedURL)

	return s.oneProduct(row)
}

// FindByProductCode retrieves a product by retailer and product code.
// Returns (nil, nil) when absent.
func (s *SQLiteStorage) FindByProductCode(ctx context.Context, retailer, code string) (*model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE retailer = ? AND product_code = ?
		ORDER BY last_updated DESC
		LIMIT 1
	`, retailer, code)

	return s.oneProduct(row)
}

func (s *SQLiteStorage) oneProduct(row *sql.Row) (*model.CanonicalProduct, error) {
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return p, nil
}

// FindByPriceWindow retrieves a retailer's products priced within tolerance
// of the given price.
func (s *SQLiteStorage) FindByPriceWindow(ctx context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE retailer = ? AND price IS NOT NULL AND price BETWEEN ? AND ?
		ORDER BY last_updated DESC
	`, retailer, price-tolerance, price+tolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return collectProducts(rows)
}

// FindByRetailerWithImages retrieves a retailer's products that carry image
// URLs, prefiltered to the coarse price window used by the image-overlap
// strategy. A negative tolerance disables the price prefilter, for records
// that arrive without a price.
func (s *SQLiteStorage) FindByRetailerWithImages(ctx context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE retailer = ? AND image_urls IS NOT NULL`
	args := []any{retailer}
	if tolerance >= 0 {
		query += ` AND (price IS NULL OR price BETWEEN ? AND ?)`
		args = append(args, price-tolerance, price+tolerance)
	}
	query += ` ORDER BY last_updated DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]model.CanonicalProduct, error) {
	defer func() { _ = rows.Close() }()

	var products []model.CanonicalProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return products, nil
}

// SaveProduct inserts or updates a canonical product. On conflict the
// identity fields refresh (title, price, code, images) but the lifecycle
// stage is left alone: stage transitions go through UpdateLifecycleStage.
func (s *SQLiteStorage) SaveProduct(ctx context.Context, product *model.CanonicalProduct) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}

	if product.LastUpdated.IsZero() {
		product.LastUpdated = time.Now()
	}

	images, err := encodeImageURLs(product.ImageURLs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (url, normalized_url, retailer, title, price, product_code, image_urls, lifecycle_stage, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			product_code = excluded.product_code,
			image_urls = excluded.image_urls,
			last_updated = excluded.last_updated
	`, product.URL, cascade.NormalizeURL(product.URL), product.Retailer, nullString(product.Title),
		nullFloat(product.Price), nullString(product.ProductCode), images,
		product.LifecycleStage, product.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	return nil
}

// UpdateLifecycleStage transitions a product to a new stage. Only
// PENDING_REVIEW products may transition, and only to ACCEPTED or REJECTED.
func (s *SQLiteStorage) UpdateLifecycleStage(ctx context.Context, url string, stage model.LifecycleStage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(url, "url"); err != nil {
		return err
	}
	if !model.ValidStage(stage) {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current model.LifecycleStage
	err = tx.QueryRowContext(ctx, `SELECT lifecycle_stage FROM products WHERE url = ?`, url).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: product %s", common.ErrNotFound, url)
	}
	if err != nil {
		return fmt.Errorf("failed to read product stage: %w", err)
	}

	if !model.CanTransition(current, stage) {
		return fmt.Errorf("%w: cannot transition %s from %s to %s", ErrInvalidStage, url, current, stage)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET lifecycle_stage = ?, last_updated = ? WHERE url = ?
	`, stage, time.Now(), url)
	if err != nil {
		return fmt.Errorf("failed to update lifecycle stage: %w", err)
	}

	return tx.Commit()
}

// ListProductsByStage retrieves products in a given stage. An empty retailer
// lists the stage across all retailers.
func (s *SQLiteStorage) ListProductsByStage(ctx context.Context, retailer string, stage model.LifecycleStage) ([]model.CanonicalProduct, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !model.ValidStage(stage) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE lifecycle_stage = ?`
	args := []any{stage}
	if retailer != "" {
		query += ` AND retailer = ?`
		args = append(args, retailer)
	}
	query += ` ORDER BY last_updated DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return collectProducts(rows)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
