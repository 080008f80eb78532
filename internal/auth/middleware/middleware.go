package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type AuthService struct {
	hmac   []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{hmac: []byte(secret), TTL: 8 * time.Hour, Issuer: "mindengage-quiz", Now: time.Now}
}

type Claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"` // student|teacher|admin
	jwt.RegisteredClaims
}

func (c *Claims) Identity() rbac.Identity {
	return rbac.Identity{ID: c.Sub, DisplayName: c.Name, Role: c.Role}
}

func (a *AuthService) IssueJWT(id rbac.Identity) (string, error) {
	now := a.Now()
	claims := &Claims{
		Sub:  id.ID,
		Name: id.DisplayName,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.Now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if c.Sub == "" || !rbac.ValidRole(c.Role) {
		return nil, errors.New("token missing subject or role")
	}
	return c, nil
}

// JWTMiddleware authenticates the bearer token and places the caller's
// identity in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := rbac.WithIdentity(r.Context(), c.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
