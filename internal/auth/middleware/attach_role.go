package auth

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// RoleSource resolves the current role of an account.
type RoleSource interface {
	Role(ctx context.Context, id string) (string, bool, error)
}

// AttachRoleFromDirectory replaces the role claimed by the token with the one
// stored for the account, so a role change takes effect before the token
// expires. Tokens for unknown accounts are refused.
func AttachRoleFromDirectory(src RoleSource, log *logger.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := rbac.IdentityFromContext(ctx)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			role, found, err := src.Role(ctx, id.ID)
			switch {
			case err != nil:
				log.Error("role lookup failed", "subject", id.ID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			case !found:
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if role != id.Role {
				id.Role = role
				ctx = rbac.WithIdentity(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
