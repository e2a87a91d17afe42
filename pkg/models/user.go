package models

import (
	"github.com/google/uuid"
)

const DefaultDifficulty = "beginner"

// UserProfile is derived from a learner's history for a single recommendation call.
type UserProfile struct {
	UserID              uuid.UUID      `json:"user_id"`
	Interests           []string       `json:"interests"`
	CompletedCourses    []uuid.UUID    `json:"completed_courses"`
	EnrolledCourses     []uuid.UUID    `json:"enrolled_courses"`
	Ratings             []CourseRating `json:"ratings"`
	TimeSpent           []TimeSpent    `json:"time_spent"`
	PreferredDifficulty string         `json:"preferred_difficulty"`
	PreferredCategories []string       `json:"preferred_categories"`
}

// IsColdStart reports whether the learner has no enrollment history.
func (p *UserProfile) IsColdStart() bool {
	return len(p.EnrolledCourses) == 0
}

// RatedCourses returns the set of course ids the learner rated.
func (p *UserProfile) RatedCourses() map[uuid.UUID]float64 {
	rated := make(map[uuid.UUID]float64, len(p.Ratings))
	for _, r := range p.Ratings {
		rated[r.CourseID] = r.Rating
	}
	return rated
}

type SimilarUser struct {
	UserID     uuid.UUID      `json:"user_id"`
	Similarity float64        `json:"similarity"`
	Ratings    []CourseRating `json:"ratings"`
}
