package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/services"
	"github.com/temcen/learnrec/pkg/models"
)

const catalogCacheKey = "catalog:published:v1"

// CachedCatalog keeps the published catalog in the warm Redis tier. Cache failures
// fall through to the wrapped source.
type CachedCatalog struct {
	services.CourseDataSource
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedCatalog(base services.CourseDataSource, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedCatalog {
	return &CachedCatalog{
		CourseDataSource: base,
		redis:            client,
		ttl:              ttl,
		logger:           logger,
	}
}

func (c *CachedCatalog) GetPublishedCourses(ctx context.Context) ([]models.CourseFeatures, error) {
	if cached, err := c.getCached(ctx); err == nil {
		c.logger.WithField("courses", len(cached)).Debug("Catalog cache hit")
		return cached, nil
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WithError(err).Warn("Catalog cache read failed")
	}

	courses, err := c.CourseDataSource.GetPublishedCourses(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache(ctx, courses); err != nil {
		c.logger.WithError(err).Warn("Failed to cache catalog")
	}
	return courses, nil
}

func (c *CachedCatalog) getCached(ctx context.Context) ([]models.CourseFeatures, error) {
	data, err := c.redis.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		return nil, err
	}

	var courses []models.CourseFeatures
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *CachedCatalog) cache(ctx context.Context, courses []models.CourseFeatures) error {
	data, err := json.Marshal(courses)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, catalogCacheKey, data, c.ttl).Err()
}
