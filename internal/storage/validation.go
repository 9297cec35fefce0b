// Package storage provides the data persistence layer for the shelfwatch application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shelfwatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidStage   = errors.New("invalid lifecycle stage")
	ErrInvalidEntry   = errors.New("invalid audit entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateProduct validates a canonical product.
func validateProduct(p *model.CanonicalProduct) error {
	if p == nil {
		return fmt.Errorf("%w: product", ErrNilParameter)
	}
	if p.URL == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidProduct)
	}
	if p.Retailer == "" {
		return fmt.Errorf("%w: missing retailer", ErrInvalidProduct)
	}
	if !model.ValidStage(p.LifecycleStage) {
		return fmt.Errorf("%w: %q", ErrInvalidStage, p.LifecycleStage)
	}
	return nil
}

// validateProfile validates a retailer match profile.
func validateProfile(p *model.RetailerMatchProfile) error {
	if p == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	if p.Retailer == "" {
		return fmt.Errorf("%w: missing retailer", ErrInvalidProfile)
	}
	if p.SampleSize < 0 {
		return fmt.Errorf("%w: negative sample size", ErrInvalidProfile)
	}
	if p.URLStabilityScore < 0 || p.URLStabilityScore > 1 {
		return fmt.Errorf("%w: url stability score %.3f out of range", ErrInvalidProfile, p.URLStabilityScore)
	}
	if p.ImageConsistencyScore < 0 || p.ImageConsistencyScore > 1 {
		return fmt.Errorf("%w: image consistency score %.3f out of range", ErrInvalidProfile, p.ImageConsistencyScore)
	}
	return nil
}

// validateAuditEntry validates an audit log entry.
func validateAuditEntry(e *model.AuditEntry) error {
	if e == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if e.ScanID == "" {
		return fmt.Errorf("%w: missing scan ID", ErrInvalidEntry)
	}
	if e.URL == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidEntry)
	}
	return nil
}
