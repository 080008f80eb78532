package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/gradebook"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

type QuizGetter interface {
	Get(ctx context.Context, id string) (quiz.Quiz, error)
}

// EventSink is told about every persisted attempt.
type EventSink interface {
	AttemptSubmitted(ctx context.Context, a quiz.Attempt) error
}

// Sessions bundles what the quiz-taking handlers need.
type Sessions struct {
	Registry *session.Registry
	Quizzes  QuizGetter
	Attempts session.AttemptSaver
	Events   EventSink // optional
	Log      *logger.Logger
}

func (s *Sessions) saver() session.AttemptSaver {
	if s.Events == nil {
		return s.Attempts
	}
	return &recordingSaver{next: s.Attempts, events: s.Events, log: logger.OrNop(s.Log)}
}

// recordingSaver appends an event after a successful save. The attempt is
// already durable by then, so an event failure is only logged.
type recordingSaver struct {
	next   session.AttemptSaver
	events EventSink
	log    *logger.Logger
}

func (s *recordingSaver) Save(ctx context.Context, a quiz.Attempt) error {
	if err := s.next.Save(ctx, a); err != nil {
		return err
	}
	if err := s.events.AttemptSubmitted(ctx, a); err != nil {
		s.log.Warn("event append failed", "attempt_id", a.ID, "error", err)
	}
	return nil
}

type sessionView struct {
	SessionID  string                    `json:"session_id"`
	QuizID     string                    `json:"quiz_id"`
	Status     session.Status            `json:"status"`
	Index      int                       `json:"index"`
	Furthest   int                       `json:"furthest"`
	Answers    map[string]quiz.Answer    `json:"answers,omitempty"`
	Progress   session.Progress          `json:"progress"`
	Current    *quiz.Question            `json:"current,omitempty"`
	Missing    []string                  `json:"missing_question_ids,omitempty"`
	Attempt    *quiz.Attempt             `json:"attempt,omitempty"`
	Percentage *int                      `json:"percentage,omitempty"`
	Band       gradebook.PerformanceBand `json:"band,omitempty"`
}

func viewSession(id string, c *session.Controller) sessionView {
	v := sessionView{SessionID: id, QuizID: c.Quiz().ID, Progress: c.Progress()}
	switch st := c.State().(type) {
	case session.InProgress:
		cur := c.Quiz().Redacted().Questions[st.Index]
		v.Status = session.StatusInProgress
		v.Index, v.Furthest, v.Answers = st.Index, st.Furthest, st.Answers
		v.Current = &cur
		v.Missing = c.Missing()
	case session.Submitted:
		a := st.Attempt
		pct := grading.Percentage(a.Score, a.TotalPoints)
		v.Status = session.StatusSubmitted
		v.Attempt = &a
		v.Percentage = &pct
		v.Band = gradebook.Band(pct)
	}
	return v
}

// POST /quizzes/{quizID}/sessions
func StartSessionHandler(s *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.Quizzes.Get(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, s.Log, err)
			return
		}
		student, _ := rbac.IdentityFromContext(r.Context())
		id, err := s.Registry.Start(q, student, s.saver())
		if err != nil {
			writeError(w, s.Log, err)
			return
		}
		var v sessionView
		_ = s.Registry.Do(id, student.ID, func(c *session.Controller) error {
			v = viewSession(id, c)
			return nil
		})
		writeJSON(w, http.StatusCreated, v)
	}
}

// sessionOp runs op on the caller's session and replies with the new view.
func sessionOp(s *Sessions, op func(r *http.Request, c *session.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var v sessionView
		err := s.Registry.Do(id, rbac.SubjectFromContext(r.Context()), func(c *session.Controller) error {
			if err := op(r, c); err != nil {
				return err
			}
			v = viewSession(id, c)
			return nil
		})
		if err != nil {
			writeError(w, s.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /sessions/{sessionID}
func GetSessionHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(*http.Request, *session.Controller) error { return nil })
}

type answerReq struct {
	Answer *quiz.Answer `json:"answer" validate:"required"`
}

// PUT /sessions/{sessionID}/answers/{questionID}  { "answer": 1 } or { "answer": [0,2] }
func AnswerHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(r *http.Request, c *session.Controller) error {
		var req answerReq
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return c.Answer(chi.URLParam(r, "questionID"), *req.Answer)
	})
}

// POST /sessions/{sessionID}/advance
func AdvanceHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(_ *http.Request, c *session.Controller) error { return c.Advance() })
}

// POST /sessions/{sessionID}/retreat
func RetreatHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(_ *http.Request, c *session.Controller) error { return c.Retreat() })
}

type gotoReq struct {
	Index *int `json:"index" validate:"required"`
}

// POST /sessions/{sessionID}/goto  { "index": 0 }
func GoToHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(r *http.Request, c *session.Controller) error {
		var req gotoReq
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return c.GoTo(*req.Index)
	})
}

// POST /sessions/{sessionID}/submit
func SubmitHandler(s *Sessions) http.HandlerFunc {
	return sessionOp(s, func(r *http.Request, c *session.Controller) error {
		_, err := c.Submit(r.Context())
		return err
	})
}

// DELETE /sessions/{sessionID} abandons the session; nothing is persisted.
func DiscardSessionHandler(s *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Registry.Discard(chi.URLParam(r, "sessionID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, s.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
