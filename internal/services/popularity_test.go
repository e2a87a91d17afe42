package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/learnrec/pkg/models"
)

func TestPopularityRecommender_Recommend(t *testing.T) {
	ctx := context.Background()
	cfg := testAlgorithmConfig()

	courseA := models.CourseFeatures{ID: uuid.New(), EnrollmentCount: 100, AverageRating: 4.5}
	courseB := models.CourseFeatures{ID: uuid.New(), EnrollmentCount: 120, AverageRating: 3.0}
	niche := models.CourseFeatures{ID: uuid.New(), EnrollmentCount: 10, AverageRating: 5.0}

	source := newFakeSource()
	source.courses = []models.CourseFeatures{niche, courseB, courseA}
	recommender := NewPopularityRecommender(NewContentFeatureExtractor(source), &cfg.Popularity, testLogger())

	t.Run("selects by enrollment and orders by score", func(t *testing.T) {
		results, err := recommender.Recommend(ctx, &models.UserProfile{UserID: uuid.New()}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, courseA.ID, results[0].CourseID)
		assert.InDelta(t, 550.0, results[0].Score, 1e-9)
		assert.Equal(t, courseB.ID, results[1].CourseID)
		assert.InDelta(t, 420.0, results[1].Score, 1e-9)

		for _, r := range results {
			assert.Equal(t, 0.8, r.Confidence)
		}
		assert.Equal(t, "popular with 100 learners, rated 4.5/5", results[0].Reason)
	})

	t.Run("enrollment ties resolve by rating", func(t *testing.T) {
		low := models.CourseFeatures{ID: uuid.New(), EnrollmentCount: 50, AverageRating: 2.0}
		high := models.CourseFeatures{ID: uuid.New(), EnrollmentCount: 50, AverageRating: 4.0}
		tied := newFakeSource()
		tied.courses = []models.CourseFeatures{low, high}

		r := NewPopularityRecommender(NewContentFeatureExtractor(tied), &cfg.Popularity, testLogger())
		results, err := r.Recommend(ctx, nil, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, high.ID, results[0].CourseID)
	})

	t.Run("empty catalog", func(t *testing.T) {
		r := NewPopularityRecommender(NewContentFeatureExtractor(newFakeSource()), &cfg.Popularity, testLogger())
		results, err := r.Recommend(ctx, nil, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
