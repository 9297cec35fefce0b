package storage

import (
	"context"
	"fmt"
	"time"

	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

// AppendAudit records an `existing` resolution. The audit trail is the only
// persistent trace of a skipped record.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditEntry(entry); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (scan_id, retailer, url, matched_url, method, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ScanID, entry.Retailer, entry.URL, entry.MatchedURL, entry.Method, entry.Confidence, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// GetAuditByScan retrieves the audit entries recorded for one scan.
func (s *SQLiteStorage) GetAuditByScan(ctx context.Context, scanID string) ([]model.AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, retailer, url, matched_url, method, confidence, created_at
		FROM audit_log
		WHERE scan_id = ?
		ORDER BY id
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ScanID, &e.Retailer, &e.URL, &e.MatchedURL, &e.Method, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}
