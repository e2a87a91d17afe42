package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

var errSourceDown = errors.New("source unavailable")

// fakeSource is an in-memory CourseDataSource that counts every read.
type fakeSource struct {
	mu          sync.Mutex
	userOrder   []uuid.UUID
	ratings     map[uuid.UUID][]models.CourseRating
	enrollments map[uuid.UUID][]models.Enrollment
	timeSpent   map[uuid.UUID][]models.TimeSpent
	courses     []models.CourseFeatures

	ratingsErr     error
	enrollmentsErr error
	catalogErr     error
	neighboursErr  error

	reads atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ratings:     make(map[uuid.UUID][]models.CourseRating),
		enrollments: make(map[uuid.UUID][]models.Enrollment),
		timeSpent:   make(map[uuid.UUID][]models.TimeSpent),
	}
}

func (f *fakeSource) rate(userID, courseID uuid.UUID, rating float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ratings[userID]; !ok {
		f.userOrder = append(f.userOrder, userID)
	}
	f.ratings[userID] = append(f.ratings[userID], models.CourseRating{CourseID: courseID, Rating: rating})
}

func (f *fakeSource) enroll(userID uuid.UUID, e models.Enrollment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrollments[userID] = append(f.enrollments[userID], e)
}

func (f *fakeSource) GetRatings(ctx context.Context, userID uuid.UUID) ([]models.CourseRating, error) {
	f.reads.Add(1)
	if f.ratingsErr != nil {
		return nil, f.ratingsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CourseRating{}, f.ratings[userID]...), nil
}

func (f *fakeSource) GetEnrollments(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	f.reads.Add(1)
	if f.enrollmentsErr != nil {
		return nil, f.enrollmentsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Enrollment{}, f.enrollments[userID]...), nil
}

func (f *fakeSource) GetTimeSpent(ctx context.Context, userID uuid.UUID) ([]models.TimeSpent, error) {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TimeSpent{}, f.timeSpent[userID]...), nil
}

func (f *fakeSource) GetPublishedCourses(ctx context.Context) ([]models.CourseFeatures, error) {
	f.reads.Add(1)
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CourseFeatures{}, f.courses...), nil
}

func (f *fakeSource) GetRatingsForCourses(ctx context.Context, courseIDs []uuid.UUID, excludingUser uuid.UUID) ([]models.UserCourseRating, error) {
	f.reads.Add(1)
	if f.neighboursErr != nil {
		return nil, f.neighboursErr
	}
	wanted := make(map[uuid.UUID]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserCourseRating
	for _, userID := range f.userOrder {
		if userID == excludingUser {
			continue
		}
		for _, r := range f.ratings[userID] {
			if _, ok := wanted[r.CourseID]; ok {
				out = append(out, models.UserCourseRating{UserID: userID, CourseID: r.CourseID, Rating: r.Rating})
			}
		}
	}
	return out, nil
}

// MockExposureSink records exposure writes.
type MockExposureSink struct {
	mock.Mock
}

func (m *MockExposureSink) LogExposure(ctx context.Context, record models.ExposureRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// stubRecommender returns canned results or an error.
type stubRecommender struct {
	results []models.RecommendationResult
	err     error
	limits  []int
	mu      sync.Mutex
}

func (s *stubRecommender) Recommend(ctx context.Context, profile *models.UserProfile, limit int) ([]models.RecommendationResult, error) {
	s.mu.Lock()
	s.limits = append(s.limits, limit)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return truncate(append([]models.RecommendationResult{}, s.results...), limit), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testAlgorithmConfig() *config.AlgorithmConfig {
	return &config.Default().Algorithms
}

// counterValue sums every series of the named counter in reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
