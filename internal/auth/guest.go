package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const guestCookie = "me_guest_id"

// POST /auth/guest issues a student token for a passwordless guest account.
// The account id is kept in a cookie so the same browser keeps its history.
func GuestLoginHandler(a *authmw.AuthService, dir *Directory, log *logger.Logger) http.HandlerFunc {
	log = logger.OrNop(log)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// 1) Reuse the guest from the cookie
		if c, err := r.Cookie(guestCookie); err == nil && strings.HasPrefix(c.Value, "guest|") {
			if acct, err := dir.Lookup(ctx, c.Value); err == nil && acct.Role == rbac.RoleStudent {
				issueGuest(w, a, acct, log)
				return
			}
		}

		// 2) Create a new guest
		sfx := strings.ReplaceAll(uuid.NewString(), "-", "")
		acct := Account{
			ID:       "guest|" + sfx,
			Username: "guest-" + sfx[:6],
			Role:     rbac.RoleStudent,
		}
		acct.DisplayName = acct.Username
		if err := dir.Put(ctx, acct, ""); err != nil {
			log.Error("guest account", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		issueGuest(w, a, acct, log)
	}
}

func issueGuest(w http.ResponseWriter, a *authmw.AuthService, acct Account, log *logger.Logger) {
	tok, err := a.IssueJWT(acct.Identity())
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookie,
		Value:    acct.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
	log.Debug("guest login", "subject", acct.ID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, Identity: acct.Identity()})
}
