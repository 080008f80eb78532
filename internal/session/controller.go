package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// AttemptSaver is the write side of the attempt store.
type AttemptSaver interface {
	Save(ctx context.Context, a quiz.Attempt) error
}

type Scorer interface {
	Score(q quiz.Quiz, answers map[string]quiz.Answer) grading.Result
}

// State is a snapshot of a controller: either InProgress or Submitted.
type State interface {
	Status() Status
}

type InProgress struct {
	Index    int                    `json:"index"`
	Furthest int                    `json:"furthest"`
	Answers  map[string]quiz.Answer `json:"answers"`
}

func (InProgress) Status() Status { return StatusInProgress }

type Submitted struct {
	Attempt quiz.Attempt `json:"attempt"`
}

func (Submitted) Status() Status { return StatusSubmitted }

// Controller walks one learner through one quiz. It is not safe for
// concurrent use; Registry serializes access for the HTTP surface.
type Controller struct {
	quiz    quiz.Quiz
	student rbac.Identity
	store   AttemptSaver
	scorer  Scorer
	now     func() time.Time
	newID   func() string
	log     *logger.Logger

	index    int
	furthest int
	answers  map[string]quiz.Answer
	attempt  *quiz.Attempt
}

type Option func(*Controller)

func WithScorer(s Scorer) Option            { return func(c *Controller) { c.scorer = s } }
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }
func WithIDs(newID func() string) Option    { return func(c *Controller) { c.newID = newID } }
func WithLogger(l *logger.Logger) Option    { return func(c *Controller) { c.log = logger.OrNop(l) } }

// New starts a session in InProgress{0, {}}.
func New(q quiz.Quiz, student rbac.Identity, store AttemptSaver, opts ...Option) (*Controller, error) {
	if len(q.Questions) == 0 {
		return nil, &quiz.ValidationError{Field: "questions", Msg: "quiz has no questions"}
	}
	if student.ID == "" {
		return nil, &quiz.ValidationError{Field: "student", Msg: "student identity required"}
	}
	if store == nil {
		return nil, fmt.Errorf("session: nil attempt store")
	}
	q.TotalPoints = quiz.SumPoints(q.Questions)
	c := &Controller{
		quiz:    q,
		student: student,
		store:   store,
		scorer:  grading.NewEngine(),
		now:     time.Now,
		newID:   uuid.NewString,
		log:     logger.Nop(),
		answers: map[string]quiz.Answer{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Controller) Quiz() quiz.Quiz        { return c.quiz }
func (c *Controller) Student() rbac.Identity { return c.student }

func (c *Controller) State() State {
	if c.attempt != nil {
		a := *c.attempt
		a.Answers = copyAnswers(a.Answers)
		a.Correct = copyVerdicts(a.Correct)
		return Submitted{Attempt: a}
	}
	return InProgress{Index: c.index, Furthest: c.furthest, Answers: copyAnswers(c.answers)}
}

type Progress struct {
	Index    int `json:"index"`
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

func (c *Controller) Progress() Progress {
	return Progress{Index: c.index, Answered: len(c.answers), Total: len(c.quiz.Questions)}
}

// Current returns the question at the current position.
func (c *Controller) Current() quiz.Question {
	return c.quiz.Questions[c.index]
}

func (c *Controller) guard(op string) error {
	if c.attempt != nil {
		return &quiz.InvalidStateError{Op: op, State: string(StatusSubmitted)}
	}
	return nil
}

// Answer records or overwrites the answer to a reached question. An empty
// selection clears it. Correctness is not evaluated here.
func (c *Controller) Answer(questionID string, value quiz.Answer) error {
	if err := c.guard("answer"); err != nil {
		return err
	}
	q, idx, ok := c.quiz.Question(questionID)
	if !ok {
		return &quiz.ValidationError{Field: "question_id", QuestionID: questionID, Msg: "unknown question"}
	}
	if idx > c.furthest {
		return &quiz.ValidationError{Field: "question_id", QuestionID: questionID, Msg: "question not reached yet"}
	}
	for _, i := range value.Choices() {
		if i < 0 || i >= len(q.Options) {
			opt := i
			return &quiz.ValidationError{Field: "answer", QuestionID: questionID, Option: &opt, Msg: "no such option"}
		}
	}
	if !value.Answered() {
		delete(c.answers, questionID)
		return nil
	}
	c.answers[questionID] = value
	return nil
}

// Advance moves forward once the current question is answered. On the last
// question it is a no-op; completion goes through Submit.
func (c *Controller) Advance() error {
	if err := c.guard("advance"); err != nil {
		return err
	}
	cur := c.Current()
	if _, ok := c.answers[cur.ID]; !ok {
		return &quiz.ValidationError{Field: "answers", QuestionID: cur.ID, Msg: "current question has no answer"}
	}
	if c.index < len(c.quiz.Questions)-1 {
		c.index++
		if c.index > c.furthest {
			c.furthest = c.index
		}
	}
	return nil
}

// Retreat moves back one question, floored at the first.
func (c *Controller) Retreat() error {
	if err := c.guard("retreat"); err != nil {
		return err
	}
	if c.index > 0 {
		c.index--
	}
	return nil
}

// GoTo jumps to an already reached position.
func (c *Controller) GoTo(index int) error {
	if err := c.guard("goto"); err != nil {
		return err
	}
	if index < 0 || index >= len(c.quiz.Questions) {
		return &quiz.ValidationError{Field: "index", Msg: fmt.Sprintf("index %d out of range", index)}
	}
	if index > c.furthest {
		return &quiz.ValidationError{Field: "index", QuestionID: c.quiz.Questions[index].ID, Msg: "question not reached yet"}
	}
	c.index = index
	return nil
}

// Missing lists unanswered question ids in quiz order.
func (c *Controller) Missing() []string {
	var out []string
	for _, q := range c.quiz.Questions {
		if _, ok := c.answers[q.ID]; !ok {
			out = append(out, q.ID)
		}
	}
	return out
}

// Submit scores the answers and saves exactly one attempt. If the store
// fails the controller stays in progress and Submit may be retried.
func (c *Controller) Submit(ctx context.Context) (quiz.Attempt, error) {
	if err := c.guard("submit"); err != nil {
		return quiz.Attempt{}, err
	}
	if missing := c.Missing(); len(missing) > 0 {
		return quiz.Attempt{}, quiz.Incomplete(missing)
	}

	res := c.scorer.Score(c.quiz, c.answers)
	a := quiz.Attempt{
		ID:          c.newID(),
		QuizID:      c.quiz.ID,
		StudentID:   c.student.ID,
		StudentName: c.student.DisplayName,
		Answers:     copyAnswers(c.answers),
		Correct:     res.Correct,
		Score:       res.Points,
		TotalPoints: c.quiz.TotalPoints,
		CompletedAt: c.now().UTC(),
	}
	if err := c.store.Save(ctx, a); err != nil {
		c.log.Warn("attempt save failed", "quiz_id", a.QuizID, "student_id", a.StudentID, "error", err)
		return quiz.Attempt{}, err
	}
	kept := a
	kept.Answers = copyAnswers(a.Answers)
	kept.Correct = copyVerdicts(a.Correct)
	c.attempt = &kept
	c.log.Info("attempt submitted",
		"attempt_id", a.ID, "quiz_id", a.QuizID, "student_id", a.StudentID,
		"score", a.Score, "total_points", a.TotalPoints)
	return a, nil
}

func copyAnswers(in map[string]quiz.Answer) map[string]quiz.Answer {
	out := make(map[string]quiz.Answer, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyVerdicts(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
