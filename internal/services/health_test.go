package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestHealthService_CheckHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   []HealthCheck
		status   string
		critical []string
		degraded []string
	}{
		{
			name:   "all healthy",
			checks: []HealthCheck{{Name: "postgresql", Critical: true, Check: ok}, {Name: "redis_warm", Check: ok}},
			status: "healthy",
		},
		{
			name:     "non-critical failure degrades",
			checks:   []HealthCheck{{Name: "postgresql", Critical: true, Check: ok}, {Name: "neo4j", Check: down}},
			status:   "degraded",
			degraded: []string{"neo4j"},
		},
		{
			name:     "critical failure is unhealthy",
			checks:   []HealthCheck{{Name: "postgresql", Critical: true, Check: down}, {Name: "neo4j", Check: down}},
			status:   "unhealthy",
			critical: []string{"postgresql"},
			degraded: []string{"neo4j"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthServiceWithChecks(nil, tt.checks, prometheus.NewRegistry(), testLogger())
			status := hs.CheckHealth(context.Background())

			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.critical, status.Critical)
			assert.Equal(t, tt.degraded, status.NonCritical)
			assert.Len(t, status.Services, len(tt.checks))
		})
	}
}
