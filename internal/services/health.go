package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/database"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck probes one dependency. Critical failures make the service unhealthy,
// the rest only degrade it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthService struct {
	checks []HealthCheck
	db     *database.Database
	logger *logrus.Logger

	healthCheckStatus   *prometheus.GaugeVec
	lastHealthCheck     *prometheus.GaugeVec
	dbConnectionMetrics *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

// NewHealthService checks Postgres and the hot Redis tier as critical dependencies,
// the warm tier and Neo4j (when configured) as non-critical.
func NewHealthService(db *database.Database, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	var checks []HealthCheck
	if db != nil {
		checks = append(checks,
			HealthCheck{Name: "postgresql", Critical: true, Check: func(ctx context.Context) error { return db.PG.Ping(ctx) }},
			HealthCheck{Name: "redis_hot", Critical: true, Check: func(ctx context.Context) error { return db.Redis.Hot.Ping(ctx).Err() }},
			HealthCheck{Name: "redis_warm", Check: func(ctx context.Context) error { return db.Redis.Warm.Ping(ctx).Err() }},
		)
		if db.HasGraph() {
			checks = append(checks, HealthCheck{Name: "neo4j", Check: db.Neo4j.VerifyConnectivity})
		}
	}
	return NewHealthServiceWithChecks(db, checks, reg, logger)
}

func NewHealthServiceWithChecks(db *database.Database, checks []HealthCheck, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		checks: checks,
		db:     db,
		logger: logger,
	}

	hs.healthCheckStatus = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"}))

	hs.lastHealthCheck = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"}))

	hs.dbConnectionMetrics = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_connection_pool_usage",
		Help: "Database connection pool statistics",
	}, []string{"database", "state"}))

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string, len(s.checks)),
	}

	allCriticalHealthy := true
	for _, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := check.Check(checkCtx)
		cancel()

		if err == nil {
			status.Services[check.Name] = "healthy"
			s.UpdateHealthMetrics(check.Name, true)
			continue
		}

		status.Services[check.Name] = "unhealthy"
		s.UpdateHealthMetrics(check.Name, false)
		if check.Critical {
			allCriticalHealthy = false
			status.Critical = append(status.Critical, check.Name)
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", check.Name)
		} else {
			status.NonCritical = append(status.NonCritical, check.Name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", check.Name)
		}
	}

	switch {
	case !allCriticalHealthy:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	s.recordPoolStats()
	return status
}

func (s *HealthService) recordPoolStats() {
	if s.db == nil || s.db.PG == nil {
		return
	}
	stats := s.db.PG.Stat()
	s.dbConnectionMetrics.WithLabelValues("postgresql", "acquired_conns").Set(float64(stats.AcquiredConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "idle_conns").Set(float64(stats.IdleConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "total_conns").Set(float64(stats.TotalConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "max_conns").Set(float64(stats.MaxConns()))
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	s.healthCheckStatus.WithLabelValues(serviceName).Set(value)
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
