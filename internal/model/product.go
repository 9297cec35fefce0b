package model

import "time"

// LifecycleStage indicates where a canonical product sits in the review flow.
type LifecycleStage string

// Lifecycle stage constants.
const (
	StagePendingReview  LifecycleStage = "PENDING_REVIEW"
	StageAccepted       LifecycleStage = "ACCEPTED"
	StageRejected       LifecycleStage = "REJECTED"
	StageImportedDirect LifecycleStage = "IMPORTED_DIRECT"
)

// ValidStage reports whether s is a known lifecycle stage.
func ValidStage(s LifecycleStage) bool {
	switch s {
	case StagePendingReview, StageAccepted, StageRejected, StageImportedDirect:
		return true
	}
	return false
}

// CanTransition reports whether a product may move from one stage to another.
// Only PENDING_REVIEW products are reviewable; IMPORTED_DIRECT is an entry
// path, never a transition target.
func CanTransition(from, to LifecycleStage) bool {
	if from != StagePendingReview {
		return false
	}
	return to == StageAccepted || to == StageRejected
}

// CanonicalProduct is an accepted product record. Products are never deleted,
// only stage-transitioned by the external review collaborator.
type CanonicalProduct struct {
	LastUpdated    time.Time
	URL            string
	Retailer       string
	Title          string
	ProductCode    string
	LifecycleStage LifecycleStage
	ImageURLs      []string
	Price          *float64
}
