package quiz

import "time"

const (
	KindSingle = "single"
	KindMulti  = "multi"
)

type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Correct Answer   `json:"correct"` // a set makes the question multi-select
	Multi   bool     `json:"multi"`   // derived from Correct, kept after redaction
	Points  int      `json:"points"`
}

func (q Question) Kind() string {
	if q.Correct.IsSet() {
		if q.Correct.IsMulti() {
			return KindMulti
		}
		return KindSingle
	}
	if q.Multi {
		return KindMulti
	}
	return KindSingle
}

type Quiz struct {
	ID          string     `json:"id"`
	ClassroomID string     `json:"classroom_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	TotalPoints int        `json:"total_points"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Question looks a question up by id and returns its position.
func (q Quiz) Question(id string) (Question, int, bool) {
	for i, qq := range q.Questions {
		if qq.ID == id {
			return qq, i, true
		}
	}
	return Question{}, -1, false
}

// Redacted returns a copy without correct answers, for learners.
func (q Quiz) Redacted() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		qq.Multi = qq.Kind() == KindMulti
		qq.Correct = Answer{}
		out.Questions[i] = qq
	}
	return out
}

// Attempt is one finalized submission. It is never mutated once saved.
type Attempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quiz_id"`
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	Answers     map[string]Answer `json:"answers"`
	Correct     map[string]bool   `json:"correct,omitempty"`
	Score       int               `json:"score"`
	TotalPoints int               `json:"total_points"`
	CompletedAt time.Time         `json:"completed_at"`
}

func SumPoints(qs []Question) int {
	total := 0
	for _, q := range qs {
		total += q.Points
	}
	return total
}
