package gradebook

import (
	"context"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type PerformanceBand string

const (
	BandHigh   PerformanceBand = "high"
	BandMedium PerformanceBand = "medium"
	BandLow    PerformanceBand = "low"
)

// Band classifies a percentage: >=80 high, 60-79 medium, below 60 low.
func Band(pct int) PerformanceBand {
	switch {
	case pct >= 80:
		return BandHigh
	case pct >= 60:
		return BandMedium
	default:
		return BandLow
	}
}

type Row struct {
	AttemptID   string          `json:"attempt_id"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"`
	Score       int             `json:"score"`
	TotalPoints int             `json:"total_points"`
	Percentage  int             `json:"percentage"`
	Band        PerformanceBand `json:"band"`
	CompletedAt time.Time       `json:"completed_at"`
}

type Summary struct {
	QuizID         string  `json:"quiz_id"`
	Title          string  `json:"title"`
	TotalPoints    int     `json:"total_points"`
	Count          int     `json:"count"`
	MeanScore      float64 `json:"mean_score"`
	MeanPercentage float64 `json:"mean_percentage"`
	Rows           []Row   `json:"rows"`
}

// Summarize builds one row per attempt, newest first. Percentages use each
// attempt's own total-points snapshot.
func Summarize(q quiz.Quiz, attempts []quiz.Attempt) Summary {
	s := Summary{
		QuizID:      q.ID,
		Title:       q.Title,
		TotalPoints: q.TotalPoints,
		Count:       len(attempts),
		Rows:        make([]Row, 0, len(attempts)),
	}
	for _, a := range attempts {
		pct := grading.Percentage(a.Score, a.TotalPoints)
		s.Rows = append(s.Rows, Row{
			AttemptID:   a.ID,
			StudentID:   a.StudentID,
			StudentName: a.StudentName,
			Score:       a.Score,
			TotalPoints: a.TotalPoints,
			Percentage:  pct,
			Band:        Band(pct),
			CompletedAt: a.CompletedAt,
		})
	}
	s.MeanScore, s.MeanPercentage = means(s.Rows)
	sort.SliceStable(s.Rows, func(i, j int) bool {
		a, b := s.Rows[i], s.Rows[j]
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.After(b.CompletedAt)
		}
		return a.AttemptID < b.AttemptID
	})
	return s
}

func means(rows []Row) (score, pct float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	var scoreSum, pctSum int
	for _, r := range rows {
		scoreSum += r.Score
		pctSum += r.Percentage
	}
	n := float64(len(rows))
	return float64(scoreSum) / n, float64(pctSum) / n
}

// Latest narrows a summary to each student's newest attempt and recomputes
// the count and means over the rows that remain.
func Latest(s Summary) Summary {
	s.Rows = LatestPerStudent(s.Rows)
	s.Count = len(s.Rows)
	s.MeanScore, s.MeanPercentage = means(s.Rows)
	return s
}

// LatestPerStudent keeps each student's newest row. rows must already be
// sorted newest first, as Summarize returns them.
func LatestPerStudent(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if seen[r.StudentID] {
			continue
		}
		seen[r.StudentID] = true
		out = append(out, r)
	}
	return out
}

type QuizReader interface {
	Get(ctx context.Context, id string) (quiz.Quiz, error)
}

type AttemptReader interface {
	FindByQuiz(ctx context.Context, quizID string) ([]quiz.Attempt, error)
}

// Aggregator reads quizzes and attempts straight from the stores; it never
// goes through a live session.
type Aggregator struct {
	quizzes  QuizReader
	attempts AttemptReader
}

func New(quizzes QuizReader, attempts AttemptReader) *Aggregator {
	return &Aggregator{quizzes: quizzes, attempts: attempts}
}

func (g *Aggregator) ForQuiz(ctx context.Context, quizID string) (Summary, error) {
	q, err := g.quizzes.Get(ctx, quizID)
	if err != nil {
		return Summary{}, err
	}
	list, err := g.attempts.FindByQuiz(ctx, quizID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(q, list), nil
}
