package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/services"
)

const (
	callerIDKey = "caller_id"
	userTierKey = "user_tier"
)

// Auth accepts "Bearer <jwt>" or "Bearer <api key>". Tokens without dots are treated as API keys.
func Auth(authService *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || token == "" {
			abortUnauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Authorization header must be in format 'Bearer <token>'")
			return
		}

		if !strings.Contains(token, ".") {
			userTier, err := authService.ValidateAPIKey(token)
			if err != nil {
				logger.WithError(err).Warn("Invalid API key")
				abortUnauthorized(c, "INVALID_API_KEY", "Invalid API key")
				return
			}

			// API keys are rate limited per key without exposing the key itself
			c.Set(callerIDKey, uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)))
			c.Set(userTierKey, userTier)
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.WithError(err).Warn("Invalid JWT token")
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(callerIDKey, claims.UserID)
		c.Set(userTierKey, claims.UserTier)
		c.Next()
	}
}

// GetCallerFromContext returns the authenticated caller and tier set by Auth.
func GetCallerFromContext(c *gin.Context) (uuid.UUID, string, bool) {
	callerID, ok := c.Get(callerIDKey)
	if !ok {
		return uuid.Nil, "", false
	}
	id, ok := callerID.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	return id, c.GetString(userTierKey), true
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
