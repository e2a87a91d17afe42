package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/temcen/learnrec/pkg/models"
)

// CourseDataSource is the read-only view of learner history and the course catalog.
type CourseDataSource interface {
	GetRatings(ctx context.Context, userID uuid.UUID) ([]models.CourseRating, error)
	GetEnrollments(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	GetTimeSpent(ctx context.Context, userID uuid.UUID) ([]models.TimeSpent, error)
	GetPublishedCourses(ctx context.Context) ([]models.CourseFeatures, error)
	GetRatingsForCourses(ctx context.Context, courseIDs []uuid.UUID, excludingUser uuid.UUID) ([]models.UserCourseRating, error)
}

// ExposureSink receives A/B exposure records. It is write-only.
type ExposureSink interface {
	LogExposure(ctx context.Context, record models.ExposureRecord) error
}

// Recommender produces ranked course suggestions for a learner profile.
type Recommender interface {
	Recommend(ctx context.Context, profile *models.UserProfile, limit int) ([]models.RecommendationResult, error)
}

// RecommendationEngineInterface is what the HTTP layer depends on.
type RecommendationEngineInterface interface {
	Recommend(ctx context.Context, userID uuid.UUID, mode string, limit int) ([]models.RecommendationResult, error)
	RecommendForABTest(ctx context.Context, userID uuid.UUID, variant string, limit int) ([]models.RecommendationResult, error)
	AssignVariant(userID uuid.UUID) string
}
