package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

func newDirectory(t *testing.T) *Directory {
	t.Helper()
	d := NewDirectory(storage.NewMemoryStore())
	d.Cost = bcrypt.MinCost
	err := d.Put(context.Background(), Account{ID: "t1", Username: "teacher", DisplayName: "Ms T", Role: rbac.RoleTeacher}, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDirectory_Authenticate(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	id, err := d.Authenticate(ctx, "Teacher", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if id != (rbac.Identity{ID: "t1", DisplayName: "Ms T", Role: rbac.RoleTeacher}) {
		t.Fatalf("identity=%+v", id)
	}
	for _, tc := range [][2]string{{"teacher", "wrong"}, {"nobody", "s3cret"}} {
		if _, err := d.Authenticate(ctx, tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%v: expected ErrInvalidCredentials, got %v", tc, err)
		}
	}
}

func TestDirectory_PutRules(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()
	if err := d.Put(ctx, Account{ID: "x", Username: "x", Role: "janitor"}, "pw"); err == nil {
		t.Fatal("unknown role accepted")
	}
	if err := d.Put(ctx, Account{ID: "t2", Username: "TEACHER", Role: rbac.RoleTeacher}, "pw"); err == nil {
		t.Fatal("duplicate username accepted")
	}
	// passwordless accounts cannot log in
	if err := d.Put(ctx, Account{ID: "g1", Username: "guest", Role: rbac.RoleStudent}, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Authenticate(ctx, "guest", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("passwordless login: %v", err)
	}
	role, found, err := d.Role(ctx, "g1")
	if err != nil || !found || role != rbac.RoleStudent {
		t.Fatalf("role=%q found=%v err=%v", role, found, err)
	}
	if _, found, _ := d.Role(ctx, "missing"); found {
		t.Fatal("unknown account reported as found")
	}
	acct, err := d.Lookup(ctx, "t1")
	if err != nil || acct.PasswordHash != "" {
		t.Fatalf("lookup leaked the hash or failed: %+v %v", acct, err)
	}
}

func TestLoginHandler(t *testing.T) {
	d := newDirectory(t)
	svc := authmw.NewAuthService("test-secret")
	h := LoginHandler(svc, d, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"teacher","password":"s3cret"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "access_token") {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"teacher","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: code=%d", rec.Code)
	}
}

func TestGuestLoginReusesCookie(t *testing.T) {
	d := newDirectory(t)
	h := GuestLoginHandler(authmw.NewAuthService("test-secret"), d, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/guest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !strings.HasPrefix(cookies[0].Value, "guest|") {
		t.Fatalf("cookies=%v", cookies)
	}
	guestID := cookies[0].Value

	req := httptest.NewRequest(http.MethodPost, "/auth/guest", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h(rec, req)
	if got := rec.Result().Cookies()[0].Value; got != guestID {
		t.Fatalf("guest not reused: %s vs %s", got, guestID)
	}
	if role, _, _ := d.Role(context.Background(), guestID); role != rbac.RoleStudent {
		t.Fatalf("guest role=%q", role)
	}
}
