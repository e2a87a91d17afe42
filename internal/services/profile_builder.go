package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/learnrec/pkg/models"
)

// UserProfileBuilder aggregates a learner's history into a UserProfile.
type UserProfileBuilder struct {
	source CourseDataSource
	logger *logrus.Logger
}

func NewUserProfileBuilder(source CourseDataSource, logger *logrus.Logger) *UserProfileBuilder {
	return &UserProfileBuilder{
		source: source,
		logger: logger,
	}
}

// Build reads enrollments, ratings and time spent concurrently and derives the profile.
// A learner without history gets an empty profile with the default difficulty.
func (b *UserProfileBuilder) Build(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var (
		enrollments []models.Enrollment
		ratings     []models.CourseRating
		timeSpent   []models.TimeSpent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if enrollments, err = b.source.GetEnrollments(gctx, userID); err != nil {
			return fmt.Errorf("failed to load enrollments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if ratings, err = b.source.GetRatings(gctx, userID); err != nil {
			return fmt.Errorf("failed to load ratings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if timeSpent, err = b.source.GetTimeSpent(gctx, userID); err != nil {
			return fmt.Errorf("failed to load time spent: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := buildProfile(userID, enrollments, ratings, timeSpent)

	b.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"enrolled":   len(profile.EnrolledCourses),
		"completed":  len(profile.CompletedCourses),
		"ratings":    len(profile.Ratings),
		"cold_start": profile.IsColdStart(),
	}).Debug("User profile built")

	return profile, nil
}

func buildProfile(
	userID uuid.UUID,
	enrollments []models.Enrollment,
	ratings []models.CourseRating,
	timeSpent []models.TimeSpent,
) *models.UserProfile {
	profile := &models.UserProfile{
		UserID:              userID,
		Interests:           []string{},
		CompletedCourses:    []uuid.UUID{},
		EnrolledCourses:     []uuid.UUID{},
		Ratings:             append([]models.CourseRating{}, ratings...),
		TimeSpent:           append([]models.TimeSpent{}, timeSpent...),
		PreferredDifficulty: models.DefaultDifficulty,
		PreferredCategories: []string{},
	}

	interests := make(map[string]struct{})
	categories := make(map[string]struct{})
	enrolled := make(map[uuid.UUID]struct{}, len(enrollments))

	// Difficulty counts keep first-seen order so ties resolve deterministically
	var difficultyOrder []string
	difficultyCounts := make(map[string]int)

	for _, e := range enrollments {
		if _, seen := enrolled[e.CourseID]; !seen {
			enrolled[e.CourseID] = struct{}{}
			profile.EnrolledCourses = append(profile.EnrolledCourses, e.CourseID)
		}

		if !e.Completed() {
			continue
		}

		profile.CompletedCourses = append(profile.CompletedCourses, e.CourseID)
		for tag := range toSet(e.Tags) {
			interests[tag] = struct{}{}
		}
		if category := foldKey(e.Category); category != "" {
			categories[category] = struct{}{}
		}
		if difficulty := foldKey(e.Difficulty); difficulty != "" {
			if _, ok := difficultyCounts[difficulty]; !ok {
				difficultyOrder = append(difficultyOrder, difficulty)
			}
			difficultyCounts[difficulty]++
		}
	}

	profile.Interests = sortedKeys(interests)
	profile.PreferredCategories = sortedKeys(categories)

	best := 0
	for _, difficulty := range difficultyOrder {
		if difficultyCounts[difficulty] > best {
			best = difficultyCounts[difficulty]
			profile.PreferredDifficulty = difficulty
		}
	}

	return profile
}
