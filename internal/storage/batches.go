package storage

import (
	"context"
	"fmt"

	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
	"shelfwatch/internal/service"
)

// IsBatchCommitted reports whether a scan batch has already been committed.
// Retried batches check this before staging any work.
func (s *SQLiteStorage) IsBatchCommitted(ctx context.Context, scanID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM scan_batches WHERE scan_id = ?)
	`, scanID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return exists, nil
}

// CommitBatch writes the updated retailer profile, the batch completion
// marker, and the retailer's new baseline snapshot in a single transaction.
// This is the exactly-once point for the batch: a second commit of the same
// scan fails with ErrBatchCommitted and changes nothing, and a failure
// anywhere leaves the marker unset so the scan can be re-run.
func (s *SQLiteStorage) CommitBatch(ctx context.Context, profile *model.RetailerMatchProfile, scanID string, stats service.BatchStats, records []model.CatalogRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProfile(profile); err != nil {
		return err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM scan_batches WHERE scan_id = ?)
	`, scanID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	if exists {
		return fmt.Errorf("%w: scan %s", common.ErrBatchCommitted, scanID)
	}

	if err := s.commitProfileTx(ctx, tx, profile); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_batches (scan_id, retailer, total, existing_count, new_count, suspected_count, invalid_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, scanID, profile.Retailer, stats.Total, stats.Existing, stats.ConfirmedNew,
		stats.SuspectedDuplicates, stats.Invalid)
	if err != nil {
		return fmt.Errorf("failed to mark batch committed: %w", err)
	}

	if err := replaceSnapshotTx(ctx, tx, profile.Retailer, records); err != nil {
		return err
	}

	return tx.Commit()
}
