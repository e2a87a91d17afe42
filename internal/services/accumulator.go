package services

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/temcen/learnrec/pkg/models"
)

type scoreEntry struct {
	courseID     uuid.UUID
	score        float64
	confidence   float64
	contributors int
	reasons      []string
}

// scoreAccumulator collects per-course scores while remembering first-insertion order,
// so equal scores always come out in the same sequence.
type scoreAccumulator struct {
	entries map[uuid.UUID]*scoreEntry
	order   []uuid.UUID
}

func newScoreAccumulator() *scoreAccumulator {
	return &scoreAccumulator{entries: make(map[uuid.UUID]*scoreEntry)}
}

// entry returns the course entry and whether it already existed.
func (a *scoreAccumulator) entry(courseID uuid.UUID) (*scoreEntry, bool) {
	if e, ok := a.entries[courseID]; ok {
		return e, true
	}
	e := &scoreEntry{courseID: courseID}
	a.entries[courseID] = e
	a.order = append(a.order, courseID)
	return e, false
}

func (a *scoreAccumulator) len() int {
	return len(a.order)
}

// results converts entries that pass keep into results, ordered by score descending.
// The score callback maps an entry to its final score.
func (a *scoreAccumulator) results(
	keep func(*scoreEntry) bool,
	score func(*scoreEntry) float64,
	reasonSep string,
	limit int,
) []models.RecommendationResult {
	results := make([]models.RecommendationResult, 0, len(a.order))
	for _, courseID := range a.order {
		e := a.entries[courseID]
		if keep != nil && !keep(e) {
			continue
		}
		results = append(results, models.RecommendationResult{
			CourseID:   e.courseID,
			Score:      score(e),
			Reason:     strings.Join(e.reasons, reasonSep),
			Confidence: e.confidence,
		})
	}

	sortByScore(results)
	return truncate(results, limit)
}

func sortByScore(results []models.RecommendationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []models.RecommendationResult, limit int) []models.RecommendationResult {
	if limit >= 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
