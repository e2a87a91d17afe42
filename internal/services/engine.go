package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

const (
	ModeCollaborative = "collaborative"
	ModeContent       = "content"
	ModePopular       = "popular"
	ModeHybrid        = "hybrid"
)

// RecommendationEngine is the entry point used by the HTTP layer. It validates requests,
// builds the learner profile and dispatches to the recommender for the requested mode.
type RecommendationEngine struct {
	profiles      *UserProfileBuilder
	collaborative Recommender
	content       Recommender
	popularity    Recommender
	hybrid        Recommender
	router        *ABTestRouter
	validator     *validator.Validate
	metrics       *EngineMetrics
	logger        *logrus.Logger
}

// NewRecommendationEngine assembles the recommenders on top of a single data source.
func NewRecommendationEngine(
	source CourseDataSource,
	sink ExposureSink,
	cfg *config.AlgorithmConfig,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *RecommendationEngine {
	extractor := NewContentFeatureExtractor(source)
	popularity := NewPopularityRecommender(extractor, &cfg.Popularity, logger)
	content := NewContentRecommender(extractor, &cfg.Content, logger)
	similarity := NewSimilarityEngine(source, &cfg.Collaborative, logger)
	collaborative := NewCollaborativeRecommender(similarity, popularity, &cfg.Collaborative, logger)

	e := &RecommendationEngine{
		profiles:      NewUserProfileBuilder(source, logger),
		collaborative: collaborative,
		content:       content,
		popularity:    popularity,
		hybrid:        NewHybridBlender(collaborative, content, popularity, &cfg.Hybrid, metrics, logger),
		validator:     validator.New(),
		metrics:       metrics,
		logger:        logger,
	}
	e.router = NewABTestRouter(e, sink, &cfg.Experiment, metrics, logger)
	return e
}

// Recommend returns up to limit suggestions for the learner using the given mode.
func (e *RecommendationEngine) Recommend(
	ctx context.Context,
	userID uuid.UUID,
	mode string,
	limit int,
) (results []models.RecommendationResult, err error) {
	if err := e.validate(&models.RecommendationRequest{UserID: userID, Mode: mode, Limit: limit}); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { e.metrics.ObserveRequest(mode, started, err) }()

	results, err = e.recommend(ctx, userID, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("%s recommendations for user %s: %w", mode, userID, err)
	}
	if results == nil {
		results = []models.RecommendationResult{}
	}
	return results, nil
}

func (e *RecommendationEngine) recommend(
	ctx context.Context,
	userID uuid.UUID,
	mode string,
	limit int,
) ([]models.RecommendationResult, error) {
	// Popularity ignores the learner's history, so skip the profile reads
	if mode == ModePopular {
		return e.popularity.Recommend(ctx, &models.UserProfile{UserID: userID}, limit)
	}

	profile, err := e.profiles.Build(ctx, userID)
	if err != nil {
		if mode != ModeHybrid {
			return nil, fmt.Errorf("failed to build user profile: %w", err)
		}
		e.logger.WithError(err).WithField("user_id", userID).
			Warn("Profile unavailable, serving popularity only for hybrid request")
		e.metrics.BranchDegraded("profile")
		return e.popularity.Recommend(ctx, &models.UserProfile{UserID: userID}, limit)
	}

	switch mode {
	case ModeCollaborative:
		return e.collaborative.Recommend(ctx, profile, limit)
	case ModeContent:
		return e.content.Recommend(ctx, profile, limit)
	default:
		return e.hybrid.Recommend(ctx, profile, limit)
	}
}

// RecommendForABTest serves the experiment variant: A is collaborative, B is hybrid.
func (e *RecommendationEngine) RecommendForABTest(
	ctx context.Context,
	userID uuid.UUID,
	variant string,
	limit int,
) ([]models.RecommendationResult, error) {
	if err := e.validate(&models.ABTestRequest{UserID: userID, Variant: variant, Limit: limit}); err != nil {
		return nil, err
	}
	return e.router.Route(ctx, userID, variant, limit)
}

func (e *RecommendationEngine) AssignVariant(userID uuid.UUID) string {
	return e.router.AssignVariant(userID)
}

// Close waits for pending exposure writes.
func (e *RecommendationEngine) Close() {
	e.router.Close()
}

// validate maps struct validation failures onto the request sentinels.
func (e *RecommendationEngine) validate(request interface{}) error {
	err := e.validator.Struct(request)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	fe := fieldErrs[0]
	detail := fmt.Sprintf("%s=%v", fe.Field(), fe.Value())
	switch fe.Field() {
	case "Mode":
		return invalidRequest(ErrUnknownMode, detail)
	case "Variant":
		return invalidRequest(ErrUnknownVariant, detail)
	case "Limit":
		return invalidRequest(ErrInvalidLimit, detail)
	default:
		return fmt.Errorf("%w: %s failed %s", ErrInvalidRequest, fe.Field(), fe.Tag())
	}
}
