package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

// neighbourLoadConcurrency bounds parallel rating reads for kept neighbours.
const neighbourLoadConcurrency = 8

// SimilarityEngine finds learners whose ratings point the same way as the target's.
type SimilarityEngine struct {
	source CourseDataSource
	config *config.CollaborativeConfig
	logger *logrus.Logger
}

func NewSimilarityEngine(source CourseDataSource, cfg *config.CollaborativeConfig, logger *logrus.Logger) *SimilarityEngine {
	return &SimilarityEngine{
		source: source,
		config: cfg,
		logger: logger,
	}
}

// CosineSimilarity compares two rating vectors over the courses both of them rated.
// It returns 0 when there is no overlap or either side has a zero norm.
func CosineSimilarity(a, b map[uuid.UUID]float64) float64 {
	common := make([]uuid.UUID, 0, len(a))
	for courseID := range a {
		if _, ok := b[courseID]; ok {
			common = append(common, courseID)
		}
	}
	if len(common) == 0 {
		return 0
	}

	// Fixed order keeps the floating point sums identical when a and b swap
	sort.Slice(common, func(i, j int) bool {
		return common[i].String() < common[j].String()
	})

	x := make([]float64, len(common))
	y := make([]float64, len(common))
	for i, courseID := range common {
		x[i] = a[courseID]
		y[i] = b[courseID]
	}

	normX := floats.Norm(x, 2)
	normY := floats.Norm(y, 2)
	if normX == 0 || normY == 0 {
		return 0
	}

	return floats.Dot(x, y) / (normX * normY)
}

// FindSimilarUsers returns up to MaxNeighbors learners with similarity above the threshold,
// most similar first, each carrying their full rating history.
func (e *SimilarityEngine) FindSimilarUsers(
	ctx context.Context,
	userID uuid.UUID,
	ratings []models.CourseRating,
) ([]models.SimilarUser, error) {
	if len(ratings) == 0 {
		return []models.SimilarUser{}, nil
	}

	target := make(map[uuid.UUID]float64, len(ratings))
	courseIDs := make([]uuid.UUID, 0, len(ratings))
	for _, r := range ratings {
		if _, seen := target[r.CourseID]; !seen {
			courseIDs = append(courseIDs, r.CourseID)
		}
		target[r.CourseID] = r.Rating
	}

	overlapping, err := e.source.GetRatingsForCourses(ctx, courseIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate neighbours: %w", err)
	}

	var candidateOrder []uuid.UUID
	candidates := make(map[uuid.UUID]map[uuid.UUID]float64)
	for _, r := range overlapping {
		if r.UserID == userID {
			continue
		}
		vector, ok := candidates[r.UserID]
		if !ok {
			vector = make(map[uuid.UUID]float64)
			candidates[r.UserID] = vector
			candidateOrder = append(candidateOrder, r.UserID)
		}
		vector[r.CourseID] = r.Rating
	}

	neighbours := make([]models.SimilarUser, 0, len(candidateOrder))
	for _, candidateID := range candidateOrder {
		similarity := CosineSimilarity(target, candidates[candidateID])
		if similarity > e.config.SimilarityThreshold {
			neighbours = append(neighbours, models.SimilarUser{
				UserID:     candidateID,
				Similarity: similarity,
			})
		}
	}

	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].Similarity > neighbours[j].Similarity
	})

	if len(neighbours) > e.config.MaxNeighbors {
		neighbours = neighbours[:e.config.MaxNeighbors]
	}

	if err := e.loadNeighbourRatings(ctx, neighbours); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(candidateOrder),
		"neighbours": len(neighbours),
	}).Debug("Similar users found")

	return neighbours, nil
}

func (e *SimilarityEngine) loadNeighbourRatings(ctx context.Context, neighbours []models.SimilarUser) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(neighbourLoadConcurrency)

	for i := range neighbours {
		i := i
		g.Go(func() error {
			ratings, err := e.source.GetRatings(gctx, neighbours[i].UserID)
			if err != nil {
				return fmt.Errorf("failed to load ratings for neighbour %s: %w", neighbours[i].UserID, err)
			}
			neighbours[i].Ratings = ratings
			return nil
		})
	}

	return g.Wait()
}
