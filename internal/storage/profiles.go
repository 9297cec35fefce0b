package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
)

// GetProfile retrieves a retailer's match profile. A retailer with no stored
// profile gets a default-initialized one (sample size 0, full URL stability,
// default cascade order); the default is not persisted until the first batch
// commits.
func (s *SQLiteStorage) GetProfile(ctx context.Context, retailer string) (*model.RetailerMatchProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return nil, err
	}

	if profile := s.getCachedProfile(retailer); profile != nil {
		return profile, nil
	}

	profile, err := s.getProfileTx(ctx, s.db, retailer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewRetailerMatchProfile(retailer), nil
	}
	if err != nil {
		return nil, err
	}

	s.cacheProfile(profile)

	return profile, nil
}

func (s *SQLiteStorage) getProfileTx(ctx context.Context, q queryable, retailer string) (*model.RetailerMatchProfile, error) {
	var (
		profile model.RetailerMatchProfile
		counts  sql.NullString
	)

	err := q.QueryRowContext(ctx, `
		SELECT retailer, sample_size, url_stability_score, image_sample_size,
		       image_consistency_score, preferred_method, confidence_threshold,
		       method_counts, last_updated
		FROM profiles
		WHERE retailer = ?
	`, retailer).Scan(
		&profile.Retailer,
		&profile.SampleSize,
		&profile.URLStabilityScore,
		&profile.ImageSampleSize,
		&profile.ImageConsistencyScore,
		&profile.PreferredMethod,
		&profile.ConfidenceThreshold,
		&counts,
		&profile.LastUpdated,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	profile.MethodCounts = make(map[model.MatchMethod]int)
	if counts.Valid && counts.String != "" {
		if err := json.Unmarshal([]byte(counts.String), &profile.MethodCounts); err != nil {
			return nil, fmt.Errorf("failed to decode method counts: %w", err)
		}
	}

	return &profile, nil
}

// ListProfiles returns every stored retailer profile ordered by retailer name.
func (s *SQLiteStorage) ListProfiles(ctx context.Context) ([]model.RetailerMatchProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT retailer, sample_size, url_stability_score, image_sample_size,
		       image_consistency_score, preferred_method, confidence_threshold,
		       method_counts, last_updated
		FROM profiles
		ORDER BY retailer
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.RetailerMatchProfile
	for rows.Next() {
		var (
			profile model.RetailerMatchProfile
			counts  sql.NullString
		)
		if err := rows.Scan(
			&profile.Retailer,
			&profile.SampleSize,
			&profile.URLStabilityScore,
			&profile.ImageSampleSize,
			&profile.ImageConsistencyScore,
			&profile.PreferredMethod,
			&profile.ConfidenceThreshold,
			&counts,
			&profile.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}

		profile.MethodCounts = make(map[model.MatchMethod]int)
		if counts.Valid && counts.String != "" {
			if err := json.Unmarshal([]byte(counts.String), &profile.MethodCounts); err != nil {
				return nil, fmt.Errorf("failed to decode method counts: %w", err)
			}
		}

		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// ResetProfile deletes a retailer's stored profile. Deleting a profile that
// does not exist is a no-op.
func (s *SQLiteStorage) ResetProfile(ctx context.Context, retailer string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(retailer, "retailer"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE retailer = ?`, retailer); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}

	s.invalidateProfileCache(retailer)

	return nil
}

// CommitProfile atomically upserts a retailer's match profile.
func (s *SQLiteStorage) CommitProfile(ctx context.Context, profile *model.RetailerMatchProfile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProfile(profile); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.commitProfileTx(ctx, tx, profile); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) commitProfileTx(ctx context.Context, q queryable, profile *model.RetailerMatchProfile) error {
	if profile.LastUpdated.IsZero() {
		profile.LastUpdated = time.Now()
	}

	counts, err := json.Marshal(profile.MethodCounts)
	if err != nil {
		return fmt.Errorf("failed to encode method counts: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO profiles (retailer, sample_size, url_stability_score, image_sample_size,
		                      image_consistency_score, preferred_method, confidence_threshold,
		                      method_counts, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(retailer) DO UPDATE SET
			sample_size = excluded.sample_size,
			url_stability_score = excluded.url_stability_score,
			image_sample_size = excluded.image_sample_size,
			image_consistency_score = excluded.image_consistency_score,
			preferred_method = excluded.preferred_method,
			confidence_threshold = excluded.confidence_threshold,
			method_counts = excluded.method_counts,
			last_updated = excluded.last_updated
	`, profile.Retailer, profile.SampleSize, profile.URLStabilityScore, profile.ImageSampleSize,
		profile.ImageConsistencyScore, profile.PreferredMethod, profile.ConfidenceThreshold,
		string(counts), profile.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.invalidateProfileCache(profile.Retailer)

	return nil
}
