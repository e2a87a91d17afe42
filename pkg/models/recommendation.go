package models

import (
	"time"

	"github.com/google/uuid"
)

type RecommendationResult struct {
	CourseID   uuid.UUID `json:"course_id"`
	Score      float64   `json:"score"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
}

type RecommendationRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Mode   string    `json:"mode" validate:"required,oneof=collaborative content popular hybrid"`
	Limit  int       `json:"limit" validate:"min=1,max=100"`
}

type ABTestRequest struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Variant string    `json:"variant" validate:"required,oneof=A B"`
	Limit   int       `json:"limit" validate:"min=1,max=100"`
}

type RecommendationResponse struct {
	UserID          uuid.UUID              `json:"user_id"`
	Mode            string                 `json:"mode"`
	Variant         string                 `json:"variant,omitempty"`
	Recommendations []RecommendationResult `json:"recommendations"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// ExposureRecord tells the analytics pipeline which variant a learner was served.
type ExposureRecord struct {
	UserID      uuid.UUID `json:"user_id"`
	Variant     string    `json:"variant"`
	Mode        string    `json:"mode"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}
