package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

// PopularityRecommender ranks the catalog by enrollment and rating. It ignores the profile
// beyond logging, which makes it the cold-start fallback.
type PopularityRecommender struct {
	extractor *ContentFeatureExtractor
	config    *config.PopularityConfig
	logger    *logrus.Logger
}

func NewPopularityRecommender(extractor *ContentFeatureExtractor, cfg *config.PopularityConfig, logger *logrus.Logger) *PopularityRecommender {
	return &PopularityRecommender{
		extractor: extractor,
		config:    cfg,
		logger:    logger,
	}
}

func (r *PopularityRecommender) Recommend(
	ctx context.Context,
	profile *models.UserProfile,
	limit int,
) ([]models.RecommendationResult, error) {
	courses, err := r.extractor.Extract(ctx)
	if err != nil {
		return nil, err
	}

	// Select the most enrolled courses first, better rated winning ties
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].EnrollmentCount != courses[j].EnrollmentCount {
			return courses[i].EnrollmentCount > courses[j].EnrollmentCount
		}
		return courses[i].AverageRating > courses[j].AverageRating
	})
	if limit >= 0 && len(courses) > limit {
		courses = courses[:limit]
	}

	results := make([]models.RecommendationResult, 0, len(courses))
	for _, course := range courses {
		results = append(results, models.RecommendationResult{
			CourseID: course.ID,
			Score:    float64(course.EnrollmentCount) + course.AverageRating*r.config.RatingMultiplier,
			Reason: fmt.Sprintf("popular with %d learners, rated %.1f/5",
				course.EnrollmentCount, course.AverageRating),
			Confidence: r.config.Confidence,
		})
	}

	sortByScore(results)

	fields := logrus.Fields{"results": len(results)}
	if profile != nil {
		fields["user_id"] = profile.UserID
	}
	r.logger.WithFields(fields).Debug("Popularity ranking completed")

	return results, nil
}
