package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/internal/database"
)

type Services struct {
	Auth      *AuthService
	Health    *HealthService
	RateLimit *RateLimitService
	Metrics   *EngineMetrics
	Engine    *RecommendationEngine
}

// New wires the request-path services. The data source and exposure sink are
// built by the caller so storage adapters can depend on this package.
func New(
	cfg *config.Config,
	logger *logrus.Logger,
	db *database.Database,
	source CourseDataSource,
	sink ExposureSink,
	reg prometheus.Registerer,
) *Services {
	metrics := NewEngineMetrics(reg, logger)

	return &Services{
		Auth:      NewAuthService(cfg, logger),
		Health:    NewHealthService(db, reg, logger),
		RateLimit: NewRateLimitService(&cfg.Auth.RateLimit, logger, db.Redis.Hot),
		Metrics:   metrics,
		Engine:    NewRecommendationEngine(source, sink, &cfg.Algorithms, metrics, logger),
	}
}

// Close waits for in-flight exposure writes.
func (s *Services) Close() {
	s.Engine.Close()
}
