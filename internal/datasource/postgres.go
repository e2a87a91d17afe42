// Package datasource implements services.CourseDataSource over the course database,
// the optional learner graph and the warm catalog cache.
package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/pkg/models"
)

// Querier is the subset of pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PostgresSource reads learner history and the published catalog. It never writes.
type PostgresSource struct {
	db     Querier
	logger *logrus.Logger
}

func NewPostgresSource(db Querier, logger *logrus.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: logger,
	}
}

const ratingsQuery = `
	SELECT course_id, rating::float8
	FROM course_ratings
	WHERE user_id = $1
	ORDER BY rated_at, course_id`

func (s *PostgresSource) GetRatings(ctx context.Context, userID uuid.UUID) ([]models.CourseRating, error) {
	rows, err := s.db.Query(ctx, ratingsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("ratings query failed: %w", err)
	}
	defer rows.Close()

	ratings := []models.CourseRating{}
	for rows.Next() {
		var r models.CourseRating
		if err := rows.Scan(&r.CourseID, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

const enrollmentsQuery = `
	SELECT e.course_id, e.status, c.category, c.difficulty, COALESCE(c.tags, '{}')
	FROM enrollments e
	JOIN courses c ON c.id = e.course_id
	WHERE e.user_id = $1
	ORDER BY e.enrolled_at, e.course_id`

func (s *PostgresSource) GetEnrollments(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	rows, err := s.db.Query(ctx, enrollmentsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("enrollments query failed: %w", err)
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.CourseID, &e.Status, &e.Category, &e.Difficulty, &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

const timeSpentQuery = `
	SELECT course_id, COALESCE(SUM(minutes_spent), 0)::bigint
	FROM lesson_progress
	WHERE user_id = $1
	GROUP BY course_id
	ORDER BY course_id`

func (s *PostgresSource) GetTimeSpent(ctx context.Context, userID uuid.UUID) ([]models.TimeSpent, error) {
	rows, err := s.db.Query(ctx, timeSpentQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("time spent query failed: %w", err)
	}
	defer rows.Close()

	spent := []models.TimeSpent{}
	for rows.Next() {
		var (
			courseID uuid.UUID
			minutes  int64
		)
		if err := rows.Scan(&courseID, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan time spent: %w", err)
		}
		spent = append(spent, models.TimeSpent{CourseID: courseID, Minutes: int(minutes)})
	}
	return spent, rows.Err()
}

// Enrollment and rating aggregates are computed in separate subqueries so the joins
// do not multiply each other's rows.
const publishedCoursesQuery = `
	SELECT
		c.id,
		c.category,
		c.difficulty,
		COALESCE(c.tags, '{}'),
		COALESCE(r.avg_rating, 0)::float8,
		COALESCE(e.enrollments, 0)::bigint,
		COALESCE(e.completions, 0)::bigint,
		COALESCE(c.duration_minutes, 0)::bigint,
		COALESCE(c.price, 0)::float8,
		c.is_premium
	FROM courses c
	LEFT JOIN (
		SELECT course_id, AVG(rating) AS avg_rating
		FROM course_ratings
		GROUP BY course_id
	) r ON r.course_id = c.id
	LEFT JOIN (
		SELECT course_id,
			COUNT(*) AS enrollments,
			COUNT(*) FILTER (WHERE status = 'completed') AS completions
		FROM enrollments
		GROUP BY course_id
	) e ON e.course_id = c.id
	WHERE c.status = 'published'
	ORDER BY c.id`

func (s *PostgresSource) GetPublishedCourses(ctx context.Context) ([]models.CourseFeatures, error) {
	rows, err := s.db.Query(ctx, publishedCoursesQuery)
	if err != nil {
		return nil, fmt.Errorf("published courses query failed: %w", err)
	}
	defer rows.Close()

	courses := []models.CourseFeatures{}
	for rows.Next() {
		var (
			c                                  models.CourseFeatures
			enrollments, completions, duration int64
		)
		if err := rows.Scan(
			&c.ID, &c.Category, &c.Difficulty, &c.Tags, &c.AverageRating,
			&enrollments, &completions, &duration, &c.Price, &c.Premium,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		c.EnrollmentCount = int(enrollments)
		c.CompletionRate = models.CompletionRate(int(completions), int(enrollments))
		c.DurationMinutes = int(duration)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.WithField("courses", len(courses)).Debug("Published catalog loaded")
	return courses, nil
}

const ratingsForCoursesQuery = `
	SELECT user_id, course_id, rating::float8
	FROM course_ratings
	WHERE course_id = ANY($1) AND user_id <> $2
	ORDER BY user_id, course_id`

func (s *PostgresSource) GetRatingsForCourses(
	ctx context.Context,
	courseIDs []uuid.UUID,
	excludingUser uuid.UUID,
) ([]models.UserCourseRating, error) {
	if len(courseIDs) == 0 {
		return []models.UserCourseRating{}, nil
	}

	rows, err := s.db.Query(ctx, ratingsForCoursesQuery, courseIDs, excludingUser)
	if err != nil {
		return nil, fmt.Errorf("overlapping ratings query failed: %w", err)
	}
	defer rows.Close()

	ratings := []models.UserCourseRating{}
	for rows.Next() {
		var r models.UserCourseRating
		if err := rows.Scan(&r.UserID, &r.CourseID, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan overlapping rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
