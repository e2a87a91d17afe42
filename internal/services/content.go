package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

const (
	maxAverageRating     = 5.0
	defaultContentReason = "similar to courses you've taken"

	// scoreTolerance absorbs rounding in weight sums so a score of exactly
	// MinScore stays excluded.
	scoreTolerance = 1e-9
)

// ContentFeatureExtractor turns the published catalog into comparable course features.
type ContentFeatureExtractor struct {
	source CourseDataSource
}

func NewContentFeatureExtractor(source CourseDataSource) *ContentFeatureExtractor {
	return &ContentFeatureExtractor{source: source}
}

// Extract loads the published catalog and normalises ratings, completion rates and tags.
func (x *ContentFeatureExtractor) Extract(ctx context.Context) ([]models.CourseFeatures, error) {
	courses, err := x.source.GetPublishedCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load published courses: %w", err)
	}

	features := make([]models.CourseFeatures, 0, len(courses))
	for _, c := range courses {
		features = append(features, normaliseFeatures(c))
	}
	return features, nil
}

func normaliseFeatures(c models.CourseFeatures) models.CourseFeatures {
	c.AverageRating = clamp(c.AverageRating, 0, maxAverageRating)
	c.CompletionRate = clamp(c.CompletionRate, 0, 1)
	if c.EnrollmentCount < 0 {
		c.EnrollmentCount = 0
	}

	seen := make(map[string]struct{}, len(c.Tags))
	tags := make([]string, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tag = strings.TrimSpace(tag)
		key := foldKey(tag)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	c.Tags = tags
	return c
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// ContentRecommender scores catalog courses against the learner's completed-course profile.
type ContentRecommender struct {
	extractor *ContentFeatureExtractor
	config    *config.ContentConfig
	logger    *logrus.Logger
}

func NewContentRecommender(extractor *ContentFeatureExtractor, cfg *config.ContentConfig, logger *logrus.Logger) *ContentRecommender {
	return &ContentRecommender{
		extractor: extractor,
		config:    cfg,
		logger:    logger,
	}
}

func (r *ContentRecommender) Recommend(
	ctx context.Context,
	profile *models.UserProfile,
	limit int,
) ([]models.RecommendationResult, error) {
	courses, err := r.extractor.Extract(ctx)
	if err != nil {
		return nil, err
	}

	interests := toSet(profile.Interests)
	categories := toSet(profile.PreferredCategories)
	difficulty := foldKey(profile.PreferredDifficulty)

	results := make([]models.RecommendationResult, 0, len(courses))
	for _, course := range courses {
		score, reason := r.scoreCourse(course, interests, categories, difficulty)
		if score <= r.config.MinScore+scoreTolerance {
			continue
		}
		results = append(results, models.RecommendationResult{
			CourseID:   course.ID,
			Score:      score,
			Reason:     reason,
			Confidence: score,
		})
	}

	sortByScore(results)
	results = truncate(results, limit)

	r.logger.WithFields(logrus.Fields{
		"user_id": profile.UserID,
		"catalog": len(courses),
		"results": len(results),
	}).Debug("Content-based filtering completed")

	return results, nil
}

// scoreCourse returns the normalised weighted match and the factors that contributed to it.
func (r *ContentRecommender) scoreCourse(
	course models.CourseFeatures,
	interests, categories map[string]struct{},
	difficulty string,
) (float64, string) {
	cfg := r.config
	var (
		sum     float64
		factors []string
	)

	if _, ok := categories[foldKey(course.Category)]; ok && course.Category != "" {
		sum += cfg.CategoryWeight
		factors = append(factors, "matches your interest in "+course.Category)
	}

	if overlap := tagOverlap(course.Tags, interests); overlap > 0 {
		sum += cfg.TagWeight * overlap
		factors = append(factors, fmt.Sprintf("shares %.0f%% of its topics with your interests", overlap*100))
	}

	if difficulty != "" && foldKey(course.Difficulty) == difficulty {
		sum += cfg.DifficultyWeight
		factors = append(factors, course.Difficulty+" level fits your experience")
	}

	if course.AverageRating >= cfg.QualityRating {
		sum += cfg.QualityWeight
		factors = append(factors, fmt.Sprintf("highly rated (%.1f/5)", course.AverageRating))
	}

	total := cfg.CategoryWeight + cfg.TagWeight + cfg.DifficultyWeight + cfg.QualityWeight
	if total <= 0 {
		return 0, defaultContentReason
	}

	reason := defaultContentReason
	if len(factors) > 0 {
		reason = strings.Join(factors, ", ")
	}
	return sum / total, reason
}

// tagOverlap is |tags ∩ interests| / |tags|, or 0 for an untagged course.
func tagOverlap(tags []string, interests map[string]struct{}) float64 {
	if len(tags) == 0 {
		return 0
	}
	matched := 0
	for _, tag := range tags {
		if _, ok := interests[foldKey(tag)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tags))
}
