// Package grading scores completed exams and writes paragraph-style advice
// grouped by the indicators a user missed most.
package grading

import (
	"crc-quiz-server/models"
)

// PointsPerQuestion is the fixed weight of one correct answer.
const PointsPerQuestion = 5

// Score summarises a graded run.
type Score struct {
	Correct   int `json:"correct"`
	Total     int `json:"total"`
	Points    int `json:"points"`
	MaxPoints int `json:"max_points"`
}

// ScoreEntries counts correct answers and converts them to points.
func ScoreEntries(entries []models.RunEntry) Score {
	s := Score{Total: len(entries)}
	for _, e := range entries {
		if e.IsCorrect() {
			s.Correct++
		}
	}
	s.Points = s.Correct * PointsPerQuestion
	s.MaxPoints = s.Total * PointsPerQuestion
	return s
}

// Reconcile pairs each question with the user's answer, producing the
// entries that are persisted as a run detail.
func Reconcile(questions []models.Question, answers map[int]string) []models.RunEntry {
	entries := make([]models.RunEntry, 0, len(questions))
	for _, q := range questions {
		entries = append(entries, models.RunEntry{
			Index:           q.Index,
			YourAnswer:      answers[q.Index],
			Correct:         q.Answer,
			Stem:            q.Stem,
			A:               q.Options.A,
			B:               q.Options.B,
			C:               q.Options.C,
			D:               q.Options.D,
			IndicatorID:     q.Metadata.IndicatorID,
			IndicatorName:   q.Metadata.IndicatorName,
			Phase:           q.Metadata.Phase,
			ErrorCategories: q.Metadata.ErrorCategories,
			Explanation:     q.Explanation,
		})
	}
	return entries
}

// TallyCategories counts, over wrong answers only, every category attached to
// the question. All three distractor kinds of a missed question are counted,
// whichever wrong letter was picked.
func TallyCategories(entries []models.RunEntry) map[models.ErrorCategory]int {
	tally := make(map[models.ErrorCategory]int, len(models.ErrorCategories))
	for _, c := range models.ErrorCategories {
		tally[c] = 0
	}
	for _, e := range entries {
		if e.IsCorrect() {
			continue
		}
		for _, c := range e.ErrorCategories {
			if _, known := tally[c]; known {
				tally[c]++
			}
		}
	}
	return tally
}
