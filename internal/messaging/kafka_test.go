package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/learnrec/internal/validation"
	"github.com/temcen/learnrec/pkg/models"
)

type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

func newTestProducer(t *testing.T, writer MessageWriter) *ExposureProducer {
	t.Helper()
	sv, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewExposureProducerWithWriter(writer, "recommendation-exposures", sv, logger)
}

func TestExposureProducer_LogExposure(t *testing.T) {
	record := models.ExposureRecord{
		UserID:      uuid.New(),
		Variant:     "A",
		Mode:        "collaborative",
		ResultCount: 5,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("publishes keyed by learner", func(t *testing.T) {
		writer := new(MockMessageWriter)
		writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != record.UserID.String() {
				return false
			}
			var decoded models.ExposureRecord
			if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
				return false
			}
			return decoded.Variant == "A" && decoded.ResultCount == 5
		})).Return(nil).Once()

		producer := newTestProducer(t, writer)
		require.NoError(t, producer.LogExposure(context.Background(), record))
		writer.AssertExpectations(t)
	})

	t.Run("invalid record is never written", func(t *testing.T) {
		writer := new(MockMessageWriter)
		producer := newTestProducer(t, writer)

		bad := record
		bad.Variant = "Z"
		err := producer.LogExposure(context.Background(), bad)
		require.Error(t, err)
		writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("broker failure is returned", func(t *testing.T) {
		brokerErr := errors.New("leader not available")
		writer := new(MockMessageWriter)
		writer.On("WriteMessages", mock.Anything, mock.Anything).Return(brokerErr)

		producer := newTestProducer(t, writer)
		err := producer.LogExposure(context.Background(), record)
		assert.ErrorIs(t, err, brokerErr)
	})
}
