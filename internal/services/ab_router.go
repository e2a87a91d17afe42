package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

const (
	VariantA = "A" // collaborative filtering
	VariantB = "B" // hybrid blend
)

// ModeRecommender serves a single recommendation mode for a learner.
type ModeRecommender interface {
	Recommend(ctx context.Context, userID uuid.UUID, mode string, limit int) ([]models.RecommendationResult, error)
}

// ABTestRouter maps experiment variants onto recommendation modes and records
// which variant each learner was served.
type ABTestRouter struct {
	recommender ModeRecommender
	sink        ExposureSink
	config      *config.ExperimentConfig
	metrics     *EngineMetrics
	logger      *logrus.Logger
	now         func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewABTestRouter(
	recommender ModeRecommender,
	sink ExposureSink,
	cfg *config.ExperimentConfig,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *ABTestRouter {
	return &ABTestRouter{
		recommender: recommender,
		sink:        sink,
		config:      cfg,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// variantMode returns the recommendation mode behind an experiment variant.
func variantMode(variant string) (string, bool) {
	switch variant {
	case VariantA:
		return ModeCollaborative, true
	case VariantB:
		return ModeHybrid, true
	default:
		return "", false
	}
}

// Route serves the variant's mode and emits an exposure record in the background.
// The exposure is recorded even when the recommender fails.
func (r *ABTestRouter) Route(
	ctx context.Context,
	userID uuid.UUID,
	variant string,
	limit int,
) ([]models.RecommendationResult, error) {
	mode, ok := variantMode(variant)
	if !ok {
		return nil, invalidRequest(ErrUnknownVariant, fmt.Sprintf("variant %q", variant))
	}

	results, err := r.recommender.Recommend(ctx, userID, mode, limit)

	r.emitExposure(models.ExposureRecord{
		UserID:      userID,
		Variant:     variant,
		Mode:        mode,
		ResultCount: len(results),
		Timestamp:   r.now().UTC(),
	})

	if err != nil {
		return nil, err
	}
	return results, nil
}

// AssignVariant deterministically buckets a learner into A or B for the configured experiment.
func (r *ABTestRouter) AssignVariant(userID uuid.UUID) string {
	hasher := fnv.New32a()
	hasher.Write([]byte(userID.String() + r.config.Name))
	bucket := float64(hasher.Sum32()) / float64(^uint32(0))

	if bucket < r.config.VariantBAllocation {
		return VariantB
	}
	return VariantA
}

func (r *ABTestRouter) emitExposure(record models.ExposureRecord) {
	if r.sink == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.metrics.ExposureFailed()
		r.logger.WithFields(logrus.Fields{
			"user_id": record.UserID,
			"variant": record.Variant,
		}).Warn("Exposure dropped, router is shutting down")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx := context.Background()
		if r.config.ExposureTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.config.ExposureTimeout)
			defer cancel()
		}

		if err := r.sink.LogExposure(ctx, record); err != nil {
			r.metrics.ExposureFailed()
			r.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": record.UserID,
				"variant": record.Variant,
			}).Warn("Failed to record experiment exposure")
		}
	}()
}

// Close stops accepting exposure writes and waits for those in flight.
func (r *ABTestRouter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
