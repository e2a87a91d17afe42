package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/services"
	"github.com/temcen/learnrec/pkg/models"
)

const (
	defaultMode  = services.ModeHybrid
	defaultLimit = 10
)

type RecommendationHandler struct {
	engine services.RecommendationEngineInterface
	logger *logrus.Logger
}

func NewRecommendationHandler(engine services.RecommendationEngineInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		engine: engine,
		logger: logger,
	}
}

// Get serves GET /api/v1/recommendations/:userId?mode=&limit=
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, limit, ok := parseCommon(c)
	if !ok {
		return
	}
	mode := c.DefaultQuery("mode", defaultMode)

	results, err := h.engine.Recommend(c.Request.Context(), userID, mode, limit)
	if err != nil {
		h.respondEngineError(c, err, logrus.Fields{"user_id": userID, "mode": mode})
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Mode:            mode,
		Recommendations: results,
		GeneratedAt:     time.Now().UTC(),
	})
}

// GetABTest serves GET /api/v1/experiments/recommendations/:userId?variant=&limit=
// When no variant is given the learner's assigned variant is used.
func (h *RecommendationHandler) GetABTest(c *gin.Context) {
	userID, limit, ok := parseCommon(c)
	if !ok {
		return
	}
	variant := c.Query("variant")
	if variant == "" {
		variant = h.engine.AssignVariant(userID)
	}

	results, err := h.engine.RecommendForABTest(c.Request.Context(), userID, variant, limit)
	if err != nil {
		h.respondEngineError(c, err, logrus.Fields{"user_id": userID, "variant": variant})
		return
	}

	mode := services.ModeCollaborative
	if variant == services.VariantB {
		mode = services.ModeHybrid
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Mode:            mode,
		Variant:         variant,
		Recommendations: results,
		GeneratedAt:     time.Now().UTC(),
	})
}

func parseCommon(c *gin.Context) (uuid.UUID, int, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID format")
		return uuid.Nil, 0, false
	}

	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
			return uuid.Nil, 0, false
		}
	}

	return userID, limit, true
}

func (h *RecommendationHandler) respondEngineError(c *gin.Context, err error, fields logrus.Fields) {
	if errors.Is(err, services.ErrInvalidRequest) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	h.logger.WithError(err).WithFields(fields).Error("Failed to generate recommendations")
	respondError(c, http.StatusInternalServerError, "RECOMMENDATION_GENERATION_FAILED", "Failed to generate recommendations")
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
