package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/auth"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/gradebook"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type Deps struct {
	Auth      *authmw.AuthService
	Directory *auth.Directory
	GuestAuth bool

	Quizzes  *quiz.Store
	Attempts *quiz.AttemptStore
	Registry *session.Registry
	Events   *syncx.EventRepo // nil unless the store is SQL backed

	Log *logger.Logger
}

// Mount registers the auth and quiz API on r.
func Mount(r chi.Router, d Deps) {
	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Directory, d.Log))
	if d.GuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(d.Auth, d.Directory, d.Log))
	}

	s := &Sessions{Registry: d.Registry, Quizzes: d.Quizzes, Attempts: d.Attempts, Log: d.Log}
	if d.Events != nil {
		s.Events = d.Events
	}
	book := gradebook.New(d.Quizzes, d.Attempts)

	// Protected API (JWT → identity in context → stored role → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		pr.Use(authmw.AttachRoleFromDirectory(d.Directory, d.Log))

		// Quiz authoring and browsing
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", CreateQuizHandler(d.Quizzes, d.Log))
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes/legacy", ImportLegacyQuizHandler(d.Quizzes, d.Log))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", ListQuizzesHandler(d.Quizzes, d.Log))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes, d.Log))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/sessions", StartSessionHandler(s))
		pr.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.With(rbac.Require("attempt:create")).Get("/", GetSessionHandler(s))
			sr.With(rbac.Require("attempt:create")).Delete("/", DiscardSessionHandler(s))
			sr.With(rbac.Require("attempt:save")).Put("/answers/{questionID}", AnswerHandler(s))
			sr.With(rbac.Require("attempt:save")).Post("/advance", AdvanceHandler(s))
			sr.With(rbac.Require("attempt:save")).Post("/retreat", RetreatHandler(s))
			sr.With(rbac.Require("attempt:save")).Post("/goto", GoToHandler(s))
			sr.With(rbac.Require("attempt:submit")).Post("/submit", SubmitHandler(s))
		})

		// Results
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/attempts/latest", LatestAttemptHandler(d.Attempts, d.Log))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", ListAttemptsHandler(d.Attempts, d.Log))
		pr.With(rbac.Require("gradebook:view")).
			Get("/quizzes/{quizID}/gradebook", GradebookHandler(book, d.Log))

		if d.Events != nil {
			pr.With(rbac.Require("events:view")).
				Get("/events", EventsHandler(d.Events, d.Log))
		}
	})
}
