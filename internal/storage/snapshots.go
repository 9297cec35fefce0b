package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

// GetSnapshot retrieves the baseline snapshot for a retailer: the records of
// the prior committed scan plus the time they were captured. An empty
// snapshot is not an error; the first scan of a retailer has no baseline.
func (s *SQLiteStorage) GetSnapshot(ctx context.Context, retailer string) ([]model.CatalogRecord, time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, time.Time{}, err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return nil, time.Time{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, price, product_code, image_urls, captured_at
		FROM snapshots
		WHERE retailer = ?
		ORDER BY url
	`, retailer)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		records    []model.CatalogRecord
		capturedAt time.Time
	)
	for rows.Next() {
		var (
			rec      model.CatalogRecord
			title    sql.NullString
			price    sql.NullFloat64
			code     sql.NullString
			images   sql.NullString
			captured time.Time
		)
		if err := rows.Scan(&rec.URL, &title, &price, &code, &images, &captured); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan snapshot record: %w", err)
		}

		rec.Retailer = retailer
		rec.Title = title.String
		rec.ProductCode = code.String
		if price.Valid {
			v := price.Float64
			rec.Price = &v
		}
		rec.ImageURLs, err = decodeImageURLs(images)
		if err != nil {
			return nil, time.Time{}, err
		}

		if captured.After(capturedAt) {
			capturedAt = captured
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return records, capturedAt, nil
}

// ReplaceSnapshot atomically replaces a retailer's baseline snapshot with the
// given records. Called after a batch commits so the next scan compares
// against this one.
func (s *SQLiteStorage) ReplaceSnapshot(ctx context.Context, retailer string, records []model.CatalogRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceSnapshotTx(ctx, tx, retailer, records); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceSnapshotTx(ctx context.Context, tx *sql.Tx, retailer string, records []model.CatalogRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE retailer = ?`, retailer); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	capturedAt := time.Now()
	for _, rec := range records {
		if rec.URL == "" {
			continue
		}

		images, err := encodeImageURLs(rec.ImageURLs)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (retailer, url, title, price, product_code, image_urls, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(retailer, url) DO UPDATE SET
				title = excluded.title,
				price = excluded.price,
				product_code = excluded.product_code,
				image_urls = excluded.image_urls,
				captured_at = excluded.captured_at
		`, retailer, rec.URL, nullString(rec.Title), nullFloat(rec.Price),
			nullString(rec.ProductCode), images, capturedAt)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot record: %w", err)
		}
	}

	return nil
}
