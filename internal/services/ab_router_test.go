package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

func exposureFor(userID uuid.UUID, variant, mode string) interface{} {
	return mock.MatchedBy(func(r models.ExposureRecord) bool {
		return r.UserID == userID && r.Variant == variant && r.Mode == mode && !r.Timestamp.IsZero()
	})
}

func TestABTestRouter_Route(t *testing.T) {
	ctx := context.Background()

	t.Run("variant A serves collaborative", func(t *testing.T) {
		source, learner := seededSource()
		sink := new(MockExposureSink)
		sink.On("LogExposure", mock.Anything, exposureFor(learner, VariantA, ModeCollaborative)).Return(nil).Once()

		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), nil, testLogger())
		served, err := engine.RecommendForABTest(ctx, learner, VariantA, 5)
		require.NoError(t, err)
		direct, err := engine.Recommend(ctx, learner, ModeCollaborative, 5)
		require.NoError(t, err)

		engine.Close()
		assert.Equal(t, direct, served)
		sink.AssertExpectations(t)
	})

	t.Run("variant B serves hybrid", func(t *testing.T) {
		source, learner := seededSource()
		sink := new(MockExposureSink)
		sink.On("LogExposure", mock.Anything, exposureFor(learner, VariantB, ModeHybrid)).Return(nil).Once()

		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), nil, testLogger())
		served, err := engine.RecommendForABTest(ctx, learner, VariantB, 5)
		require.NoError(t, err)
		direct, err := engine.Recommend(ctx, learner, ModeHybrid, 5)
		require.NoError(t, err)

		engine.Close()
		assert.Equal(t, direct, served)
		sink.AssertExpectations(t)
	})

	t.Run("unknown variant is rejected without exposure", func(t *testing.T) {
		source := newFakeSource()
		sink := new(MockExposureSink)
		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), nil, testLogger())

		_, err := engine.router.Route(ctx, uuid.New(), "content", 5)
		engine.Close()

		assert.ErrorIs(t, err, ErrUnknownVariant)
		assert.Zero(t, source.reads.Load())
		sink.AssertNotCalled(t, "LogExposure", mock.Anything, mock.Anything)
	})

	t.Run("sink failure is not surfaced", func(t *testing.T) {
		source, learner := seededSource()
		sink := new(MockExposureSink)
		sink.On("LogExposure", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

		reg := prometheus.NewRegistry()
		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), NewEngineMetrics(reg, testLogger()), testLogger())

		results, err := engine.RecommendForABTest(ctx, learner, VariantA, 5)
		require.NoError(t, err)
		assert.NotEmpty(t, results)

		engine.Close()
		assert.Equal(t, 1.0, counterValue(t, reg, "recommendation_exposure_failures_total"))
	})

	t.Run("exposure is recorded when recommending fails", func(t *testing.T) {
		source, learner := seededSource()
		source.ratingsErr = errSourceDown
		sink := new(MockExposureSink)
		sink.On("LogExposure", mock.Anything, mock.MatchedBy(func(r models.ExposureRecord) bool {
			return r.Variant == VariantA && r.ResultCount == 0
		})).Return(nil).Once()

		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), nil, testLogger())
		_, err := engine.RecommendForABTest(ctx, learner, VariantA, 5)
		engine.Close()

		assert.ErrorIs(t, err, errSourceDown)
		sink.AssertExpectations(t)
	})

	t.Run("close waits for in-flight exposure writes", func(t *testing.T) {
		source, learner := seededSource()
		var written atomic.Bool
		sink := new(MockExposureSink)
		sink.On("LogExposure", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			time.Sleep(50 * time.Millisecond)
			written.Store(true)
		}).Return(nil).Once()

		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), nil, testLogger())
		_, err := engine.RecommendForABTest(ctx, learner, VariantB, 5)
		require.NoError(t, err)

		engine.Close()
		assert.True(t, written.Load())
	})

	t.Run("requests after close are served without exposure", func(t *testing.T) {
		source, learner := seededSource()
		sink := new(MockExposureSink)

		reg := prometheus.NewRegistry()
		engine := NewRecommendationEngine(source, sink, testAlgorithmConfig(), NewEngineMetrics(reg, testLogger()), testLogger())
		engine.Close()

		results, err := engine.RecommendForABTest(ctx, learner, VariantA, 5)
		require.NoError(t, err)
		assert.NotEmpty(t, results)

		engine.Close()
		sink.AssertNotCalled(t, "LogExposure", mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, counterValue(t, reg, "recommendation_exposure_failures_total"))
	})
}

func TestABTestRouter_AssignVariant(t *testing.T) {
	logger := testLogger()

	t.Run("assignment is stable per learner", func(t *testing.T) {
		router := NewABTestRouter(nil, nil, &config.ExperimentConfig{Name: "hybrid-vs-collaborative", VariantBAllocation: 0.5}, nil, logger)
		for i := 0; i < 20; i++ {
			userID := uuid.New()
			variant := router.AssignVariant(userID)
			assert.Contains(t, []string{VariantA, VariantB}, variant)
			assert.Equal(t, variant, router.AssignVariant(userID))
		}
	})

	t.Run("zero allocation keeps everyone on A", func(t *testing.T) {
		router := NewABTestRouter(nil, nil, &config.ExperimentConfig{Name: "exp", VariantBAllocation: 0}, nil, logger)
		for i := 0; i < 20; i++ {
			assert.Equal(t, VariantA, router.AssignVariant(uuid.New()))
		}
	})
}
