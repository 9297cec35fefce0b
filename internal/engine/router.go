package engine

import (
	"context"
	"fmt"
	"log/slog"

	"shelfwatch/internal/model"
	"shelfwatch/internal/service"
)

// AuditLog is the slice of storage the router writes to.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
}

// Router maps resolution results to their downstream actions: skip with an
// audit entry, request full extraction plus primary review, or request
// disambiguation review. It never creates or transitions canonical products.
type Router struct {
	audit AuditLog
	queue service.AssessmentQueue
}

// NewRouter creates an outcome router.
func NewRouter(audit AuditLog, queue service.AssessmentQueue) *Router {
	return &Router{audit: audit, queue: queue}
}

// Route dispatches one resolution result.
func (r *Router) Route(ctx context.Context, scanID string, result *model.ResolutionResult, record model.CatalogRecord) (model.RoutedAction, error) {
	switch result.Classification {
	case model.ClassificationExisting:
		entry := &model.AuditEntry{
			ScanID:     scanID,
			Retailer:   record.Retailer,
			URL:        record.URL,
			MatchedURL: result.MatchedURL(),
			Method:     result.Method,
			Confidence: result.Confidence,
		}
		if err := r.audit.AppendAudit(ctx, entry); err != nil {
			return model.ActionSkip, fmt.Errorf("failed to audit existing resolution: %w", err)
		}

		slog.Debug("Skipping existing product",
			"retailer", record.Retailer,
			"url", record.URL,
			"method", result.Method,
			"confidence", result.Confidence)

		return model.ActionSkip, nil

	case model.ClassificationConfirmedNew:
		task := &model.ReviewTask{
			ScanID:     scanID,
			Retailer:   record.Retailer,
			ReviewType: model.ReviewPrimary,
			Record:     record,
		}
		if err := r.queue.Enqueue(ctx, task); err != nil {
			return model.ActionPrimaryReview, fmt.Errorf("failed to enqueue primary review: %w", err)
		}

		slog.Info("Routed new product to extraction",
			"retailer", record.Retailer,
			"url", record.URL)

		return model.ActionPrimaryReview, nil

	case model.ClassificationSuspectedDuplicate:
		task := &model.ReviewTask{
			ScanID:     scanID,
			Retailer:   record.Retailer,
			ReviewType: model.ReviewDisambiguation,
			Record:     record,
			Candidate:  result.Matched,
		}
		if err := r.queue.Enqueue(ctx, task); err != nil {
			return model.ActionDisambiguation, fmt.Errorf("failed to enqueue disambiguation: %w", err)
		}

		slog.Info("Routed suspected duplicate to disambiguation",
			"retailer", record.Retailer,
			"url", record.URL,
			"candidate", result.MatchedURL(),
			"confidence", result.Confidence)

		return model.ActionDisambiguation, nil
	}

	return model.ActionSkip, fmt.Errorf("unknown classification %q", result.Classification)
}
