package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/auth"
	"github.com/markdave123-py/Shopvora/internal/models"
)

// CookieName holds the session token for browser pages.
const CookieName = "shopvora_session"

// Identity is the signed-in user of a request.
type Identity struct {
	User *models.User
	Role string
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Authenticator turns a token into a user and a user into a role.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
	ResolveRole(ctx context.Context, userID string) string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the request's identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// Session resolves the bearer token or session cookie. Requests without a
// valid token continue anonymously.
func Session(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFrom(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					hlog.FromRequest(r).Warn().Err(err).Msg("session lookup failed")
				}
				next.ServeHTTP(w, r)
				return
			}
			id := &Identity{User: user, Role: a.ResolveRole(r.Context(), user.ID)}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession sends anonymous page visitors to /login and answers API
// callers with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			deny(w, r, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through only users holding role; others go home (pages)
// or get 403 (API).
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			switch {
			case id == nil:
				deny(w, r, http.StatusUnauthorized)
			case id.Role != role:
				deny(w, r, http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int) {
	if respond.WantsJSON(r) {
		if status == http.StatusUnauthorized {
			respond.Error(w, status, "sign in required")
		} else {
			respond.Error(w, status, "admin access required")
		}
		return
	}
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// PublicKey guards endpoints meant for the site's own front ends. An empty
// key leaves the endpoint open.
func PublicKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					respond.Error(w, http.StatusUnauthorized, "invalid api key")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
