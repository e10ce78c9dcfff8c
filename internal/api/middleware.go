package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"movebooking/pkg/identity"
)

type TokenVerifier interface {
	Verify(token string) (*identity.Session, error)
}

// RoleResolver reads the caller's current role from the relational store.
// ErrUnknownUser means no profile row exists yet.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

var ErrUnknownUser = errors.New("unknown user")

// Authenticate verifies `Authorization: Bearer <access token>` and attaches the session.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				Fail(w, r, Unauthorized("missing access token"))
				return
			}
			s, err := v.Verify(strings.TrimSpace(authz[7:]))
			if err != nil {
				Fail(w, r, Unauthorized("invalid access token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireAdmin re-reads the role on every request so a demoted admin loses
// access without waiting for token expiry.
func RequireAdmin(roles RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := SessionFromContext(r.Context())
			if s == nil {
				Fail(w, r, Unauthorized("missing session"))
				return
			}
			role, err := roles.RoleOf(r.Context(), s.UserID)
			if err != nil && !errors.Is(err, ErrUnknownUser) {
				Fail(w, r, err)
				return
			}
			if role != identity.RoleAdmin {
				Fail(w, r, Forbidden("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
