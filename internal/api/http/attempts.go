package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// scopedStudent returns the student the caller may read. Without
// attempt:view-all the caller only ever sees their own attempts.
func scopedStudent(r *http.Request) (string, error) {
	id, _ := rbac.IdentityFromContext(r.Context())
	want := strings.TrimSpace(r.URL.Query().Get("student_id"))
	if !rbac.Can(id, "attempt:view-all") {
		return id.ID, nil
	}
	if want == "" {
		return "", &quiz.ValidationError{Field: "student_id", Msg: "student_id required"}
	}
	return want, nil
}

// GET /quizzes/{quizID}/attempts/latest?student_id=...
func LatestAttemptHandler(store *quiz.AttemptStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := scopedStudent(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		a, ok, err := store.FindLatestByStudent(r.Context(), chi.URLParam(r, "quizID"), studentID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if !ok {
			writeError(w, log, quiz.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts?student_id=...&limit=50&offset=0, newest first.
func ListAttemptsHandler(store *quiz.AttemptStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := scopedStudent(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		list, err := store.FindByStudent(r.Context(), studentID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CompletedAt.After(list[j].CompletedAt)
		})
		if offset > len(list) {
			offset = len(list)
		}
		list = list[offset:]
		if limit > 0 && limit < len(list) {
			list = list[:limit]
		}
		if list == nil {
			list = []quiz.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
