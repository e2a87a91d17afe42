package models

import "github.com/google/uuid"

type CourseFeatures struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Category        string    `json:"category" db:"category"`
	Difficulty      string    `json:"difficulty" db:"difficulty"`
	Tags            []string  `json:"tags,omitempty" db:"tags"`
	AverageRating   float64   `json:"average_rating" db:"average_rating"`
	EnrollmentCount int       `json:"enrollment_count" db:"enrollment_count"`
	CompletionRate  float64   `json:"completion_rate" db:"completion_rate"` // 0.0 to 1.0
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Price           float64   `json:"price" db:"price"`
	Premium         bool      `json:"premium" db:"is_premium"`
}

// CompletionRate returns completions / enrollments clamped to [0, 1].
func CompletionRate(completions, enrollments int) float64 {
	if enrollments <= 0 || completions <= 0 {
		return 0
	}
	rate := float64(completions) / float64(enrollments)
	if rate > 1 {
		return 1
	}
	return rate
}

type Enrollment struct {
	CourseID   uuid.UUID `json:"course_id" db:"course_id"`
	Status     string    `json:"status" db:"status"` // enrolled, in_progress, completed, dropped
	Category   string    `json:"category" db:"category"`
	Difficulty string    `json:"difficulty" db:"difficulty"`
	Tags       []string  `json:"tags,omitempty" db:"tags"`
}

const EnrollmentStatusCompleted = "completed"

// Completed reports whether the learner finished the course.
func (e Enrollment) Completed() bool {
	return e.Status == EnrollmentStatusCompleted
}

type CourseRating struct {
	CourseID uuid.UUID `json:"course_id" db:"course_id"`
	Rating   float64   `json:"rating" db:"rating"`
}

type UserCourseRating struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	CourseID uuid.UUID `json:"course_id" db:"course_id"`
	Rating   float64   `json:"rating" db:"rating"`
}

type TimeSpent struct {
	CourseID uuid.UUID `json:"course_id" db:"course_id"`
	Minutes  int       `json:"minutes" db:"minutes"`
}
