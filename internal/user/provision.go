package user

import (
	"context"
	"net/http"
	"sync"

	"movebooking/internal/api"
)

type Ensurer interface {
	Ensure(ctx context.Context, id, email string) (*Profile, error)
}

// Provision makes sure an authenticated caller has a users row before any
// handler writes rows that reference it. Ids already provisioned by this
// process are skipped.
func Provision(store Ensurer) func(http.Handler) http.Handler {
	var seen sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := api.SessionFromContext(r.Context())
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := seen.Load(s.UserID); !ok {
				if _, err := store.Ensure(r.Context(), s.UserID, s.Email); err != nil {
					api.Fail(w, r, err)
					return
				}
				seen.Store(s.UserID, struct{}{})
			}
			next.ServeHTTP(w, r)
		})
	}
}
