package grading

import (
	"math"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ItemResult is the verdict for one question.
type ItemResult struct {
	QuestionID string `json:"question_id"`
	Kind       string `json:"kind"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
}

// Result is the outcome of scoring a whole submission.
type Result struct {
	Points    int             `json:"points"`
	MaxPoints int             `json:"max_points"`
	Correct   map[string]bool `json:"correct"`
	Items     []ItemResult    `json:"items"`
}

func (r Result) Percentage() int { return Percentage(r.Points, r.MaxPoints) }

// Strategy decides correctness of one response against a key.
type Strategy interface {
	Correct(key, response quiz.Answer) bool
}

// Engine routes each question to the Strategy for its kind.
type Engine struct {
	strategies map[string]Strategy
}

type Option func(*Engine)

// WithStrategy installs or replaces the strategy for a question kind.
func WithStrategy(kind string, s Strategy) Option {
	return func(e *Engine) { e.strategies[kind] = s }
}

// NewEngine installs built-in strategies.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategies: map[string]Strategy{
			quiz.KindSingle: singleStrategy{},
			quiz.KindMulti:  multiStrategy{},
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Score grades answers against q with the built-in strategies.
func Score(q quiz.Quiz, answers map[string]quiz.Answer) Result {
	return defaultEngine.Score(q, answers)
}

// Grade judges a single question. A missing answer is incorrect.
func (e *Engine) Grade(q quiz.Question, resp quiz.Answer) ItemResult {
	it := ItemResult{
		QuestionID: q.ID,
		Kind:       q.Kind(),
		Answered:   resp.Answered(),
		MaxPoints:  q.Points,
	}
	if !it.Answered {
		return it
	}
	s, ok := e.strategies[it.Kind]
	if !ok {
		return it
	}
	if s.Correct(q.Correct, resp) {
		it.Correct = true
		it.Points = q.Points
	}
	return it
}

// Score never fails: unanswered or unknown questions score zero.
func (e *Engine) Score(q quiz.Quiz, answers map[string]quiz.Answer) Result {
	res := Result{
		Correct: make(map[string]bool, len(q.Questions)),
		Items:   make([]ItemResult, 0, len(q.Questions)),
	}
	for _, qq := range q.Questions {
		it := e.Grade(qq, answers[qq.ID])
		res.Items = append(res.Items, it)
		res.Correct[qq.ID] = it.Correct
		res.Points += it.Points
		res.MaxPoints += it.MaxPoints
	}
	return res
}

// Percentage is round(points/total*100); a zero total scores 0.
func Percentage(points, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(points) / float64(total) * 100))
}

// --- Strategies ---

type singleStrategy struct{}

func (singleStrategy) Correct(key, resp quiz.Answer) bool {
	return !resp.IsMulti() && !key.IsMulti() && resp.Choice() == key.Choice()
}

type multiStrategy struct{}

func (multiStrategy) Correct(key, resp quiz.Answer) bool {
	if !resp.IsMulti() {
		return false
	}
	correct := toSet(key.Choices())
	got := toSet(resp.Choices())
	if len(got) != len(correct) {
		return false
	}
	for k := range got {
		if _, ok := correct[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(arr []int) map[int]struct{} {
	m := make(map[int]struct{}, len(arr))
	for _, i := range arr {
		m[i] = struct{}{}
	}
	return m
}
