package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/auth"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

/* ---------------- harness ---------------- */

// failingKV rejects writes under a prefix.
type failingKV struct {
	storage.KV
	prefix string
}

func (f failingKV) Set(ctx context.Context, key, value string) error {
	if strings.HasPrefix(key, f.prefix) {
		return errors.New("disk full")
	}
	return f.KV.Set(ctx, key, value)
}

type harness struct {
	t      *testing.T
	router http.Handler
	tokens map[string]string
}

func newHarness(t *testing.T, kv storage.KV) *harness {
	t.Helper()
	ctx := context.Background()
	dir := auth.NewDirectory(kv)
	dir.Cost = bcrypt.MinCost
	for _, a := range []auth.Account{
		{ID: "t1", Username: "teacher", Role: rbac.RoleTeacher},
		{ID: "s1", Username: "sam", DisplayName: "Sam", Role: rbac.RoleStudent},
		{ID: "s2", Username: "kim", Role: rbac.RoleStudent},
	} {
		if err := dir.Put(ctx, a, "pw"); err != nil {
			t.Fatal(err)
		}
	}

	r := chi.NewRouter()
	Mount(r, Deps{
		Auth:      authmw.NewAuthService("test-secret"),
		Directory: dir,
		Quizzes:   quiz.NewStore(kv, nil),
		Attempts:  quiz.NewAttemptStore(kv, nil),
		Registry:  session.NewRegistry(time.Hour, nil),
	})
	h := &harness{t: t, router: r, tokens: map[string]string{}}
	for _, u := range []string{"teacher", "sam", "kim"} {
		rec := h.do("", http.MethodPost, "/auth/login", `{"username":"`+u+`","password":"pw"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("login %s: %d %s", u, rec.Code, rec.Body.String())
		}
		var out struct {
			AccessToken string `json:"access_token"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		h.tokens[u] = out.AccessToken
	}
	return h
}

func (h *harness) do(user, method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if tok := h.tokens[user]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

const exampleQuizJSON = `{
  "classroom_id": "c1",
  "title": "example",
  "questions": [
    {"id": "Q1", "prompt": "single", "options": ["a","b","c"], "correct": 1, "points": 5},
    {"id": "Q2", "prompt": "multi", "options": ["a","b","c"], "correct": [0,2], "points": 5}
  ]
}`

func (h *harness) createQuiz() string {
	h.t.Helper()
	rec := h.do("teacher", http.MethodPost, "/quizzes", exampleQuizJSON)
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("create quiz: %d %s", rec.Code, rec.Body.String())
	}
	return decode[quiz.Quiz](h.t, rec).ID
}

func (h *harness) startSession(user, quizID string) string {
	h.t.Helper()
	rec := h.do(user, http.MethodPost, "/quizzes/"+quizID+"/sessions", "")
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("start session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[sessionView](h.t, rec).SessionID
}

/* ---------------- tests ---------------- */

func TestQuizAuthoring(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())

	if rec := h.do("sam", http.MethodPost, "/quizzes", exampleQuizJSON); rec.Code != http.StatusForbidden {
		t.Fatalf("student create: %d", rec.Code)
	}
	if rec := h.do("", http.MethodGet, "/quizzes", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: %d", rec.Code)
	}

	id := h.createQuiz()

	rec := h.do("teacher", http.MethodGet, "/quizzes/"+id, "")
	if q := decode[quiz.Quiz](t, rec); q.TotalPoints != 10 || !q.Questions[0].Correct.IsSet() {
		t.Fatalf("teacher view: %+v", q)
	}
	rec = h.do("sam", http.MethodGet, "/quizzes/"+id, "")
	q := decode[quiz.Quiz](t, rec)
	if q.Questions[0].Correct.IsSet() || q.Questions[1].Correct.IsSet() {
		t.Fatalf("student view leaked the key: %s", rec.Body.String())
	}
	if q.Questions[0].Multi || !q.Questions[1].Multi {
		t.Fatalf("student view should tell single from multi-select: %s", rec.Body.String())
	}
	rec = h.do("sam", http.MethodGet, "/quizzes?classroom_id=c1", "")
	if list := decode[[]quiz.Quiz](t, rec); len(list) != 1 {
		t.Fatalf("list: %s", rec.Body.String())
	}
	if rec := h.do("sam", http.MethodGet, "/quizzes/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing quiz: %d", rec.Code)
	}
}

func TestQuizAuthoringValidation(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	cases := map[string]string{
		"no title":         `{"questions":[{"options":["a"],"correct":0}]}`,
		"no questions":     `{"title":"x","questions":[]}`,
		"key out of range": `{"title":"x","questions":[{"id":"A","prompt":"p","options":["a"],"correct":3}]}`,
		"string key":       `{"title":"x","questions":[{"id":"A","prompt":"p","options":["a"],"correct":"0"}]}`,
	}
	for name, body := range cases {
		rec := h.do("teacher", http.MethodPost, "/quizzes", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: code=%d body=%s", name, rec.Code, rec.Body.String())
		}
	}
	rec := h.do("teacher", http.MethodPost, "/quizzes", cases["key out of range"])
	if body := decode[errorBody](t, rec); body.QuestionID != "A" {
		t.Fatalf("error should name the question: %+v", body)
	}
}

func TestLegacyImport(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	rec := h.do("teacher", http.MethodPost, "/quizzes/legacy",
		`{"title":"old","question":"2+2?","options":["3","4"],"correct_answer":1,"points":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("legacy import: %d %s", rec.Code, rec.Body.String())
	}
	q := decode[quiz.Quiz](t, rec)
	if q.ID == "" || len(q.Questions) != 1 || q.TotalPoints != 4 || q.CreatedBy != "t1" {
		t.Fatalf("legacy quiz: %+v", q)
	}
}

func TestLegacyImportCannotReuseQuizID(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	id := h.createQuiz()

	rec := h.do("teacher", http.MethodPost, "/quizzes/legacy",
		`{"id":"`+id+`","title":"hijack","question":"?","options":["a"],"correct_answer":0,"points":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("legacy import over existing id: %d %s", rec.Code, rec.Body.String())
	}
	if body := decode[errorBody](t, rec); body.Field != "id" {
		t.Fatalf("error should name the id field: %+v", body)
	}

	rec = h.do("teacher", http.MethodGet, "/quizzes/"+id, "")
	if q := decode[quiz.Quiz](t, rec); q.Title != "example" || len(q.Questions) != 2 || q.TotalPoints != 10 {
		t.Fatalf("published quiz changed: %s", rec.Body.String())
	}
}

func TestSessionFlow(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	quizID := h.createQuiz()
	sid := h.startSession("sam", quizID)
	base := "/sessions/" + sid

	rec := h.do("sam", http.MethodGet, base, "")
	v := decode[sessionView](t, rec)
	if v.Status != session.StatusInProgress || v.Current == nil || v.Current.ID != "Q1" || v.Current.Correct.IsSet() {
		t.Fatalf("initial view: %s", rec.Body.String())
	}

	if rec := h.do("sam", http.MethodPost, base+"/advance", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("advance unanswered: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodPut, base+"/answers/Q1", `{"answer":"1"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("string answer: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodPut, base+"/answers/Q1", `{"answer":1}`); rec.Code != http.StatusOK {
		t.Fatalf("answer Q1: %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do("sam", http.MethodPost, base+"/submit", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("incomplete submit: %d", rec.Code)
	}
	if body := decode[errorBody](t, rec); len(body.Missing) != 1 || body.Missing[0] != "Q2" {
		t.Fatalf("missing ids: %+v", body)
	}

	if rec := h.do("sam", http.MethodPost, base+"/advance", ""); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodPut, base+"/answers/Q2", `{"answer":[2,0]}`); rec.Code != http.StatusOK {
		t.Fatalf("answer Q2: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodPost, base+"/goto", `{"index":0}`); rec.Code != http.StatusOK {
		t.Fatalf("goto: %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do("sam", http.MethodPost, base+"/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	v = decode[sessionView](t, rec)
	if v.Status != session.StatusSubmitted || v.Attempt.Score != 10 || *v.Percentage != 100 || v.Band != "high" {
		t.Fatalf("submitted view: %s", rec.Body.String())
	}

	if rec := h.do("sam", http.MethodPost, base+"/submit", ""); rec.Code != http.StatusConflict {
		t.Fatalf("second submit: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodPut, base+"/answers/Q1", `{"answer":0}`); rec.Code != http.StatusConflict {
		t.Fatalf("answer after submit: %d", rec.Code)
	}

	rec = h.do("sam", http.MethodGet, "/quizzes/"+quizID+"/attempts/latest", "")
	if a := decode[quiz.Attempt](t, rec); a.Score != 10 || a.StudentID != "s1" || a.StudentName != "Sam" {
		t.Fatalf("latest: %s", rec.Body.String())
	}
	rec = h.do("sam", http.MethodGet, "/attempts", "")
	if list := decode[[]quiz.Attempt](t, rec); len(list) != 1 {
		t.Fatalf("history: %s", rec.Body.String())
	}
}

func TestSessionOwnership(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	sid := h.startSession("sam", h.createQuiz())

	if rec := h.do("kim", http.MethodGet, "/sessions/"+sid, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("other student: %d", rec.Code)
	}
	if rec := h.do("teacher", http.MethodGet, "/sessions/"+sid, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("teacher lacks attempt:create: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodDelete, "/sessions/"+sid, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("discard: %d", rec.Code)
	}
	if rec := h.do("sam", http.MethodGet, "/sessions/"+sid, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("after discard: %d", rec.Code)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	h := newHarness(t, failingKV{KV: storage.NewMemoryStore(), prefix: "attempts/"})
	sid := h.startSession("sam", h.createQuiz())
	base := "/sessions/" + sid
	h.do("sam", http.MethodPut, base+"/answers/Q1", `{"answer":1}`)
	h.do("sam", http.MethodPost, base+"/advance", "")
	h.do("sam", http.MethodPut, base+"/answers/Q2", `{"answer":[0]}`)

	rec := h.do("sam", http.MethodPost, base+"/submit", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("submit: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Fatalf("storage detail leaked: %s", rec.Body.String())
	}
	rec = h.do("sam", http.MethodGet, base, "")
	if v := decode[sessionView](t, rec); v.Status != session.StatusInProgress {
		t.Fatalf("session should stay in progress: %s", rec.Body.String())
	}
}

func TestGradebookAndScoping(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	quizID := h.createQuiz()
	for user, q2 := range map[string]string{"sam": `[0,2]`, "kim": `[0]`} {
		base := "/sessions/" + h.startSession(user, quizID)
		h.do(user, http.MethodPut, base+"/answers/Q1", `{"answer":0}`)
		h.do(user, http.MethodPost, base+"/advance", "")
		h.do(user, http.MethodPut, base+"/answers/Q2", `{"answer":`+q2+`}`)
		if rec := h.do(user, http.MethodPost, base+"/submit", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s submit: %d", user, rec.Code)
		}
	}

	if rec := h.do("sam", http.MethodGet, "/quizzes/"+quizID+"/gradebook", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("student gradebook: %d", rec.Code)
	}
	rec := h.do("teacher", http.MethodGet, "/quizzes/"+quizID+"/gradebook", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gradebook: %d", rec.Code)
	}
	var book struct {
		Count     int     `json:"count"`
		MeanScore float64 `json:"mean_score"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &book)
	if book.Count != 2 || book.MeanScore != 2.5 {
		t.Fatalf("gradebook: %s", rec.Body.String())
	}

	// a second, better attempt by kim: the latest view counts it once
	base := "/sessions/" + h.startSession("kim", quizID)
	h.do("kim", http.MethodPut, base+"/answers/Q1", `{"answer":1}`)
	h.do("kim", http.MethodPost, base+"/advance", "")
	h.do("kim", http.MethodPut, base+"/answers/Q2", `{"answer":[0,2]}`)
	if rec := h.do("kim", http.MethodPost, base+"/submit", ""); rec.Code != http.StatusOK {
		t.Fatalf("kim resubmit: %d", rec.Code)
	}
	rec = h.do("teacher", http.MethodGet, "/quizzes/"+quizID+"/gradebook?view=latest", "")
	var latest struct {
		Count     int               `json:"count"`
		MeanScore float64           `json:"mean_score"`
		Rows      []json.RawMessage `json:"rows"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &latest)
	if latest.Count != 2 || len(latest.Rows) != 2 || latest.MeanScore != 7.5 {
		t.Fatalf("latest gradebook: %s", rec.Body.String())
	}

	// students are pinned to their own attempts
	rec = h.do("kim", http.MethodGet, "/quizzes/"+quizID+"/attempts/latest?student_id=s1", "")
	if a := decode[quiz.Attempt](t, rec); a.StudentID != "s2" {
		t.Fatalf("scoping ignored: %s", rec.Body.String())
	}
	if rec := h.do("teacher", http.MethodGet, "/attempts", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("teacher without student_id: %d", rec.Code)
	}
	rec = h.do("teacher", http.MethodGet, "/attempts?student_id=s1", "")
	if list := decode[[]quiz.Attempt](t, rec); len(list) != 1 || list[0].Score != 5 {
		t.Fatalf("teacher history: %s", rec.Body.String())
	}
	if rec := h.do("teacher", http.MethodGet, "/quizzes/"+quizID+"/attempts/latest?student_id=nobody", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("no attempts: %d", rec.Code)
	}
}
