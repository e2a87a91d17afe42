package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

const (
	branchCollaborative = "collaborative"
	branchContent       = "content"
	branchPopularity    = "popularity"
)

// HybridBlender runs the three recommenders concurrently and merges their weighted scores.
type HybridBlender struct {
	collaborative Recommender
	content       Recommender
	popularity    Recommender
	config        *config.HybridConfig
	metrics       *EngineMetrics
	logger        *logrus.Logger
}

func NewHybridBlender(
	collaborative, content, popularity Recommender,
	cfg *config.HybridConfig,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *HybridBlender {
	return &HybridBlender{
		collaborative: collaborative,
		content:       content,
		popularity:    popularity,
		config:        cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// Recommend never fails because of a single branch: a failed branch is logged and counted as empty.
func (h *HybridBlender) Recommend(
	ctx context.Context,
	profile *models.UserProfile,
	limit int,
) ([]models.RecommendationResult, error) {
	var collaborative, content, popular []models.RecommendationResult

	var g errgroup.Group
	g.Go(func() error {
		collaborative = h.runBranch(ctx, branchCollaborative, h.collaborative, profile, limit*2)
		return nil
	})
	g.Go(func() error {
		content = h.runBranch(ctx, branchContent, h.content, profile, limit*2)
		return nil
	})
	g.Go(func() error {
		popular = h.runBranch(ctx, branchPopularity, h.popularity, profile, limit)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := h.merge(collaborative, content, popular, limit)

	h.logger.WithFields(logrus.Fields{
		"user_id":       profile.UserID,
		"collaborative": len(collaborative),
		"content":       len(content),
		"popular":       len(popular),
		"results":       len(results),
	}).Debug("Hybrid blend completed")

	return results, nil
}

func (h *HybridBlender) runBranch(
	ctx context.Context,
	branch string,
	recommender Recommender,
	profile *models.UserProfile,
	limit int,
) []models.RecommendationResult {
	results, err := recommender.Recommend(ctx, profile, limit)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": profile.UserID,
			"branch":  branch,
		}).Warn("Hybrid branch failed, continuing without it")
		h.metrics.BranchDegraded(branch)
		return nil
	}
	return results
}

func (h *HybridBlender) merge(
	collaborative, content, popular []models.RecommendationResult,
	limit int,
) []models.RecommendationResult {
	acc := newScoreAccumulator()

	for _, r := range collaborative {
		e, _ := acc.entry(r.CourseID)
		e.score += r.Score * h.config.CollaborativeWeight
		e.confidence = r.Confidence
		e.reasons = append(e.reasons, "Collaborative: "+r.Reason)
	}

	for _, r := range content {
		e, existed := acc.entry(r.CourseID)
		e.score += r.Score * h.config.ContentWeight
		e.reasons = append(e.reasons, "Content: "+r.Reason)
		if !existed || r.Confidence > e.confidence {
			e.confidence = r.Confidence
		}
	}

	for _, r := range popular {
		e, existed := acc.entry(r.CourseID)
		e.score += r.Score * h.config.PopularityWeight
		if existed {
			e.reasons = append(e.reasons, "Popular")
			continue
		}
		e.confidence = r.Confidence
		e.reasons = append(e.reasons, "Popular: "+r.Reason)
	}

	return acc.results(nil, func(e *scoreEntry) float64 { return e.score }, "; ", limit)
}
