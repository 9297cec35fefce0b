package model

import "time"

// ReviewType distinguishes the two kinds of human review the router requests.
type ReviewType string

// Review type constants.
const (
	ReviewPrimary        ReviewType = "primary"
	ReviewDisambiguation ReviewType = "disambiguation"
)

// RoutedAction is what the outcome router decided to do with a resolution.
type RoutedAction string

// Routed action constants.
const (
	ActionSkip           RoutedAction = "SKIP"
	ActionPrimaryReview  RoutedAction = "PRIMARY_REVIEW"
	ActionDisambiguation RoutedAction = "DISAMBIGUATION"
)

// ReviewTask is the unit of work the router hands to the assessment queue.
// For disambiguation tasks Candidate carries the matched product's summary.
type ReviewTask struct {
	EnqueuedAt time.Time         `json:"enqueued_at"`
	Candidate  *CandidateSummary `json:"candidate,omitempty"`
	ID         string            `json:"id"`
	ScanID     string            `json:"scan_id"`
	Retailer   string            `json:"retailer"`
	ReviewType ReviewType        `json:"review_type"`
	Record     CatalogRecord     `json:"record"`
}

// AuditEntry records an `existing` resolution for observability. Audit rows
// are the only side effect of skipping an already-known product.
type AuditEntry struct {
	CreatedAt  time.Time
	ScanID     string
	Retailer   string
	URL        string
	MatchedURL string
	Method     MatchMethod
	Confidence float64
}
