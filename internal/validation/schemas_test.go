package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/learnrec/pkg/models"
)

func TestSchemaValidator_ExposureRecord(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	valid := models.ExposureRecord{
		UserID:      uuid.New(),
		Variant:     "B",
		Mode:        "hybrid",
		ResultCount: 10,
		Timestamp:   time.Now().UTC(),
	}

	tests := []struct {
		name   string
		mutate func(r *models.ExposureRecord)
		valid  bool
	}{
		{"valid record", func(r *models.ExposureRecord) {}, true},
		{"unknown variant", func(r *models.ExposureRecord) { r.Variant = "C" }, false},
		{"content mode is never an experiment arm", func(r *models.ExposureRecord) { r.Mode = "content" }, false},
		{"negative result count", func(r *models.ExposureRecord) { r.ResultCount = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)

			result := sv.ValidateExposureRecord(record)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.NoError(t, result.Err())
			} else {
				assert.Error(t, result.Err())
			}
		})
	}
}

func TestSchemaValidator_RecommendationResponse(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	response := models.RecommendationResponse{
		UserID: uuid.New(),
		Mode:   "content",
		Recommendations: []models.RecommendationResult{
			{CourseID: uuid.New(), Score: 0.8, Reason: "matches your interest in Data", Confidence: 0.8},
		},
		GeneratedAt: time.Now().UTC(),
	}
	assert.True(t, sv.ValidateRecommendationResponse(response).Valid)

	response.Recommendations[0].Confidence = 1.5
	assert.False(t, sv.ValidateRecommendationResponse(response).Valid)
}

func TestSchemaValidator_ErrorResponse(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.True(t, sv.ValidateErrorResponse(`{"error":{"code":"INVALID_REQUEST","message":"limit out of range"}}`).Valid)
	assert.False(t, sv.ValidateErrorResponse(`{"error":{"code":"bad code","message":""}}`).Valid)
	assert.False(t, sv.SchemaExists("content-item"))
}
