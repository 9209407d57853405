package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStage identifies which checkpoint a review request belongs to.
// Mapping review always precedes submission review; submission review is
// only reached after an approved mapping review.
type ReviewStage string

const (
	StageMappingReview    ReviewStage = "mapping"
	StageSubmissionReview ReviewStage = "submission"
)

// MappingSummary is one line of a mapping review: what would be filled where.
type MappingSummary struct {
	FieldLabel string  `json:"field_label"`
	Attribute  string  `json:"attribute"`
	Value      string  `json:"value"` // truncated for display
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// ReviewRequest is a snapshot of proposed mappings or a pre-submission
// state, handed synchronously to the human review gate.
type ReviewRequest struct {
	ID        uuid.UUID        `json:"id"`
	Stage     ReviewStage      `json:"stage"`
	PageURL   string           `json:"page_url"`
	Message   string           `json:"message"`
	Mappings  []MappingSummary `json:"mappings,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewReviewRequest creates a review request for the given stage.
func NewReviewRequest(stage ReviewStage, pageURL, message string) ReviewRequest {
	return ReviewRequest{
		ID:        uuid.New(),
		Stage:     stage,
		PageURL:   pageURL,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// ReviewResponse is the reviewer's decision. It is the only way
// state-changing actions proceed.
type ReviewResponse struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty"`
}
