package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type createQuizReq struct {
	ClassroomID string          `json:"classroom_id"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Questions   []quiz.Question `json:"questions" validate:"required,min=1"`
}

// POST /quizzes
func CreateQuizHandler(store *quiz.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuizReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		author, _ := rbac.IdentityFromContext(r.Context())
		q, err := store.Create(r.Context(), author, quiz.Draft{
			ClassroomID: strings.TrimSpace(req.ClassroomID),
			Title:       req.Title,
			Description: req.Description,
			Questions:   req.Questions,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// POST /quizzes/legacy converts an old single-question record.
func ImportLegacyQuizHandler(store *quiz.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quiz.LegacyQuiz
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		author, _ := rbac.IdentityFromContext(r.Context())
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if req.CreatedBy == "" {
			req.CreatedBy = author.ID
		}
		if req.CreatedAt.IsZero() {
			req.CreatedAt = store.Now().UTC()
		}
		q, err := quiz.FromLegacy(req)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if err := store.Import(r.Context(), q); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// viewFor strips answer keys unless the caller may see them.
func viewFor(r *http.Request, q quiz.Quiz) quiz.Quiz {
	id, _ := rbac.IdentityFromContext(r.Context())
	if rbac.Can(id, "quiz:view-key") {
		return q
	}
	return q.Redacted()
}

// GET /quizzes?classroom_id=...
func ListQuizzesHandler(store *quiz.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("classroom_id")))
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]quiz.Quiz, 0, len(list))
		for _, q := range list {
			out = append(out, viewFor(r, q))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(store *quiz.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.Get(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, viewFor(r, q))
	}
}
