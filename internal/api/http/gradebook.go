package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/gradebook"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

// GET /quizzes/{quizID}/gradebook?view=latest
// The default view lists every attempt; view=latest keeps one row per student
// and its count and means cover only those rows.
func GradebookHandler(g *gradebook.Aggregator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := g.ForQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if r.URL.Query().Get("view") == "latest" {
			s = gradebook.Latest(s)
		}
		writeJSON(w, http.StatusOK, s)
	}
}
