package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/services"
	"github.com/temcen/learnrec/pkg/models"
)

// GraphNeighborSource answers the neighbour lookup from the learner graph and
// delegates every other read to the wrapped source.
type GraphNeighborSource struct {
	services.CourseDataSource
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewGraphNeighborSource(base services.CourseDataSource, driver neo4j.DriverWithContext, logger *logrus.Logger) *GraphNeighborSource {
	return &GraphNeighborSource{
		CourseDataSource: base,
		driver:           driver,
		logger:           logger,
	}
}

const overlappingRatingsCypher = `
	MATCH (l:Learner)-[r:RATED]->(c:Course)
	WHERE c.course_id IN $courseIds AND l.learner_id <> $userId
	RETURN l.learner_id AS user_id, c.course_id AS course_id, toFloat(r.rating) AS rating
	ORDER BY user_id, course_id`

func (s *GraphNeighborSource) GetRatingsForCourses(
	ctx context.Context,
	courseIDs []uuid.UUID,
	excludingUser uuid.UUID,
) ([]models.UserCourseRating, error) {
	if len(courseIDs) == 0 {
		return []models.UserCourseRating{}, nil
	}

	ids := make([]string, len(courseIDs))
	for i, id := range courseIDs {
		ids[i] = id.String()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, overlappingRatingsCypher, map[string]interface{}{
		"courseIds": ids,
		"userId":    excludingUser.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("graph neighbour query failed: %w", err)
	}

	ratings := []models.UserCourseRating{}
	for result.Next(ctx) {
		rating, err := ratingFromRecord(result.Record())
		if err != nil {
			s.logger.WithError(err).Warn("Skipping malformed RATED relationship")
			continue
		}
		ratings = append(ratings, rating)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph neighbour query failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": excludingUser,
		"courses": len(courseIDs),
		"ratings": len(ratings),
	}).Debug("Overlapping ratings loaded from graph")

	return ratings, nil
}

func ratingFromRecord(record *neo4j.Record) (models.UserCourseRating, error) {
	var r models.UserCourseRating

	userID, err := uuidField(record, "user_id")
	if err != nil {
		return r, err
	}
	courseID, err := uuidField(record, "course_id")
	if err != nil {
		return r, err
	}

	raw, ok := record.Get("rating")
	if !ok {
		return r, fmt.Errorf("record has no rating")
	}
	rating, ok := raw.(float64)
	if !ok {
		return r, fmt.Errorf("rating has unexpected type %T", raw)
	}

	r.UserID = userID
	r.CourseID = courseID
	r.Rating = rating
	return r, nil
}

func uuidField(record *neo4j.Record, key string) (uuid.UUID, error) {
	raw, ok := record.Get(key)
	if !ok {
		return uuid.Nil, fmt.Errorf("record has no %s", key)
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s has unexpected type %T", key, raw)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}
