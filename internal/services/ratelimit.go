package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

// RateLimitService enforces a sliding window per caller in the hot Redis tier.
type RateLimitService struct {
	config      *config.RateLimitConfig
	logger      *logrus.Logger
	redisClient *redis.Client
	timeout     time.Duration
}

func NewRateLimitService(cfg *config.RateLimitConfig, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		timeout:     2 * time.Second,
	}
}

// CheckLimit records the request and reports the caller's remaining budget.
// Redis failures fail open.
func (s *RateLimitService) CheckLimit(ctx context.Context, callerID, userTier string) *models.RateLimitInfo {
	limit := s.limitForTier(userTier)
	window := s.config.Window
	now := time.Now()
	info := &models.RateLimitInfo{
		Limit:     limit,
		Remaining: limit - 1,
		ResetTime: now.Add(window).Unix(),
	}

	if s.redisClient == nil {
		return info
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := fmt.Sprintf("rate_limit:caller:%s", callerID)
	windowStart := now.Add(-window)

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Warn("Rate limit check failed, allowing request")
		return info
	}

	info.Remaining = limit - int(countCmd.Val()) - 1
	if info.Remaining < -1 {
		info.Remaining = -1
	}
	return info
}

// IsAllowed reports whether the request fits within the caller's window.
func (s *RateLimitService) IsAllowed(ctx context.Context, callerID, userTier string) (bool, *models.RateLimitInfo) {
	info := s.CheckLimit(ctx, callerID, userTier)
	allowed := info.Remaining >= 0
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return allowed, info
}

func (s *RateLimitService) limitForTier(userTier string) int {
	if userTier == "premium" {
		return s.config.Premium
	}
	return s.config.Default
}
