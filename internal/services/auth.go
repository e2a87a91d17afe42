package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/pkg/models"
)

const tokenIssuer = "github.com/temcen/learnrec"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// AuthService validates bearer credentials: HS256 JWTs or configured API keys.
type AuthService struct {
	config    *config.Config
	logger    *logrus.Logger
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger) *AuthService {
	return &AuthService{
		config:    cfg,
		logger:    logger,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
	}
}

// GenerateToken issues a signed token for a learner. Used by operators and tests.
func (s *AuthService) GenerateToken(userID uuid.UUID, userTier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.JWTClaims{
		UserID:   userID,
		UserTier: userTier,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateAPIKey returns the tier configured for the key.
func (s *AuthService) ValidateAPIKey(apiKey string) (string, error) {
	if tier, ok := s.config.Auth.APIKeys[apiKey]; ok && apiKey != "" {
		return tier, nil
	}
	return "", ErrInvalidAPIKey
}
