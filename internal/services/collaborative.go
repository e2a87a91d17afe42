package services

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

// CollaborativeRecommender suggests courses rated by learners with similar taste.
type CollaborativeRecommender struct {
	similarity *SimilarityEngine
	fallback   Recommender
	config     *config.CollaborativeConfig
	logger     *logrus.Logger
}

// NewCollaborativeRecommender wires the neighbour search and the recommender used
// when a learner has too few ratings.
func NewCollaborativeRecommender(
	similarity *SimilarityEngine,
	fallback Recommender,
	cfg *config.CollaborativeConfig,
	logger *logrus.Logger,
) *CollaborativeRecommender {
	return &CollaborativeRecommender{
		similarity: similarity,
		fallback:   fallback,
		config:     cfg,
		logger:     logger,
	}
}

func (r *CollaborativeRecommender) Recommend(
	ctx context.Context,
	profile *models.UserProfile,
	limit int,
) ([]models.RecommendationResult, error) {
	if len(profile.Ratings) < r.config.MinRatings {
		r.logger.WithFields(logrus.Fields{
			"user_id": profile.UserID,
			"ratings": len(profile.Ratings),
		}).Debug("Not enough ratings for collaborative filtering, using popularity")
		return r.fallback.Recommend(ctx, profile, limit)
	}

	neighbours, err := r.similarity.FindSimilarUsers(ctx, profile.UserID, profile.Ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar users: %w", err)
	}

	results := r.score(profile, neighbours, limit)

	r.logger.WithFields(logrus.Fields{
		"user_id":    profile.UserID,
		"neighbours": len(neighbours),
		"results":    len(results),
	}).Debug("Collaborative filtering completed")

	return results, nil
}

func (r *CollaborativeRecommender) score(
	profile *models.UserProfile,
	neighbours []models.SimilarUser,
	limit int,
) []models.RecommendationResult {
	rated := profile.RatedCourses()
	acc := newScoreAccumulator()

	for _, neighbour := range neighbours {
		for _, rating := range neighbour.Ratings {
			if _, ok := rated[rating.CourseID]; ok {
				continue
			}
			e, _ := acc.entry(rating.CourseID)
			e.score += rating.Rating * neighbour.Similarity
			e.contributors++
			e.reasons = append(e.reasons, "similar user rated "+formatRating(rating.Rating)+"/5")
		}
	}

	return acc.results(
		func(e *scoreEntry) bool {
			if e.contributors < r.config.MinContributors {
				return false
			}
			e.confidence = collaborativeConfidence(e.contributors)
			return true
		},
		func(e *scoreEntry) float64 { return e.score / float64(e.contributors) },
		", ",
		limit,
	)
}

func collaborativeConfidence(contributors int) float64 {
	return math.Min(float64(contributors)/10.0, 1.0)
}

// formatRating prints whole ratings without a decimal point.
func formatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64)
}
