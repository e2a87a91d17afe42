package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestPostgresSource_GetRatings(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	source := NewPostgresSource(mockDB, testLogger())
	userID := uuid.New()
	course1, course2 := uuid.New(), uuid.New()

	t.Run("returns ratings in order", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"course_id", "rating"}).
			AddRow(course1, 4.5).
			AddRow(course2, 3.0)
		mockDB.ExpectQuery("FROM course_ratings").
			WithArgs(userID).
			WillReturnRows(rows)

		ratings, err := source.GetRatings(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, ratings, 2)
		assert.Equal(t, course1, ratings[0].CourseID)
		assert.Equal(t, 4.5, ratings[0].Rating)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("unknown user gets an empty slice", func(t *testing.T) {
		mockDB.ExpectQuery("FROM course_ratings").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"course_id", "rating"}))

		ratings, err := source.GetRatings(context.Background(), userID)
		require.NoError(t, err)
		assert.NotNil(t, ratings)
		assert.Empty(t, ratings)
	})

	t.Run("query failure is wrapped", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mockDB.ExpectQuery("FROM course_ratings").
			WithArgs(userID).
			WillReturnError(dbErr)

		_, err := source.GetRatings(context.Background(), userID)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestPostgresSource_GetEnrollments(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	source := NewPostgresSource(mockDB, testLogger())
	userID, courseID := uuid.New(), uuid.New()

	rows := pgxmock.NewRows([]string{"course_id", "status", "category", "difficulty", "tags"}).
		AddRow(courseID, "completed", "Programming", "intermediate", []string{"go", "testing"})
	mockDB.ExpectQuery("FROM enrollments e").
		WithArgs(userID).
		WillReturnRows(rows)

	enrollments, err := source.GetEnrollments(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.True(t, enrollments[0].Completed())
	assert.Equal(t, []string{"go", "testing"}, enrollments[0].Tags)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresSource_GetTimeSpent(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	source := NewPostgresSource(mockDB, testLogger())
	userID, courseID := uuid.New(), uuid.New()

	mockDB.ExpectQuery("FROM lesson_progress").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"course_id", "minutes"}).AddRow(courseID, int64(95)))

	spent, err := source.GetTimeSpent(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, spent, 1)
	assert.Equal(t, 95, spent[0].Minutes)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresSource_GetPublishedCourses(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	source := NewPostgresSource(mockDB, testLogger())
	popular, fresh := uuid.New(), uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "category", "difficulty", "tags", "avg_rating",
		"enrollments", "completions", "duration_minutes", "price", "is_premium",
	}).
		AddRow(popular, "Data", "beginner", []string{"sql"}, 4.4, int64(200), int64(50), int64(240), 49.0, false).
		AddRow(fresh, "Design", "advanced", []string{}, 0.0, int64(0), int64(0), int64(60), 0.0, true)

	mockDB.ExpectQuery("FROM courses c").WillReturnRows(rows)

	courses, err := source.GetPublishedCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, popular, courses[0].ID)
	assert.Equal(t, 200, courses[0].EnrollmentCount)
	assert.InDelta(t, 0.25, courses[0].CompletionRate, 1e-9)
	assert.Equal(t, 240, courses[0].DurationMinutes)

	assert.Equal(t, 0.0, courses[1].CompletionRate)
	assert.Equal(t, 0.0, courses[1].AverageRating)
	assert.True(t, courses[1].Premium)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresSource_GetRatingsForCourses(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	source := NewPostgresSource(mockDB, testLogger())
	target, peer := uuid.New(), uuid.New()
	courseIDs := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("excludes the target learner", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"user_id", "course_id", "rating"}).
			AddRow(peer, courseIDs[0], 5.0).
			AddRow(peer, courseIDs[1], 2.0)
		mockDB.ExpectQuery("WHERE course_id = ANY").
			WithArgs(courseIDs, target).
			WillReturnRows(rows)

		ratings, err := source.GetRatingsForCourses(context.Background(), courseIDs, target)
		require.NoError(t, err)
		require.Len(t, ratings, 2)
		assert.Equal(t, peer, ratings[0].UserID)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("no courses skips the query", func(t *testing.T) {
		ratings, err := source.GetRatingsForCourses(context.Background(), nil, target)
		require.NoError(t, err)
		assert.Empty(t, ratings)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}
