package quiz

import (
	"fmt"
	"strings"
	"time"
)

const DefaultPoints = 1

// Draft is what the quiz builder submits. Identity, timestamps and total
// points are filled in by Build/Store.Create.
type Draft struct {
	ClassroomID string     `json:"classroom_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// Build validates a draft and returns a quiz with defaulted points and
// derived total. Questions without an id get q1, q2, ... by position.
func Build(d Draft) (Quiz, error) {
	if strings.TrimSpace(d.Title) == "" {
		return Quiz{}, invalid("title", "", "title required")
	}
	if len(d.Questions) == 0 {
		return Quiz{}, invalid("questions", "", "quiz needs at least one question")
	}
	qs := make([]Question, len(d.Questions))
	seen := make(map[string]struct{}, len(d.Questions))
	for i, q := range d.Questions {
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return Quiz{}, invalid("id", q.ID, "duplicate question id")
		}
		seen[q.ID] = struct{}{}
		if q.Points == 0 {
			q.Points = DefaultPoints
		}
		if err := validateQuestion(q); err != nil {
			return Quiz{}, err
		}
		q.Options = append([]string(nil), q.Options...)
		q.Multi = q.Correct.IsMulti()
		qs[i] = q
	}
	return Quiz{
		ClassroomID: strings.TrimSpace(d.ClassroomID),
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Questions:   qs,
		TotalPoints: SumPoints(qs),
	}, nil
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return invalid("prompt", q.ID, "prompt required")
	}
	if len(q.Options) == 0 {
		return invalid("options", q.ID, "question has no options")
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return invalidOption(q.ID, i, "option text required")
		}
	}
	if q.Points < 0 {
		return invalid("points", q.ID, "points must be positive")
	}
	if !q.Correct.Answered() {
		return invalid("correct", q.ID, "no correct answer designated")
	}
	for _, c := range q.Correct.Choices() {
		if c < 0 || c >= len(q.Options) {
			return invalidOption(q.ID, c, "correct answer is not one of the options")
		}
	}
	return nil
}

// LegacyQuiz is the older one-question-per-record shape.
type LegacyQuiz struct {
	ID           string    `json:"id"`
	ClassroomID  string    `json:"classroom_id"`
	Title        string    `json:"title"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_answer"`
	Points       int       `json:"points"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromLegacy converts a legacy record into a one-question quiz whose question
// carries the whole point value.
func FromLegacy(l LegacyQuiz) (Quiz, error) {
	q, err := Build(Draft{
		ClassroomID: l.ClassroomID,
		Title:       l.Title,
		Questions: []Question{{
			ID:      "q1",
			Prompt:  l.Question,
			Options: l.Options,
			Correct: Single(l.CorrectIndex),
			Points:  l.Points,
		}},
	})
	if err != nil {
		return Quiz{}, err
	}
	q.ID = l.ID
	q.CreatedBy = l.CreatedBy
	q.CreatedAt = l.CreatedAt
	return q, nil
}
