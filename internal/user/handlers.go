package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/api"
	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/internal/validate"
	"movebooking/pkg/identity"
	"movebooking/pkg/logging"
)

// MetadataSyncer mirrors profile fields into the identity provider.
type MetadataSyncer interface {
	UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]any) error
}

type Handlers struct {
	Users    Store
	Identity MetadataSyncer
}

var adminListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"role":  {Column: "role", Op: listing.Eq, Parse: listing.OneOf(roles...)},
		"email": {Column: "email", Op: listing.Eq},
	},
	Sorts:       map[string]string{"created_at": "created_at", "email": "email"},
	DefaultSort: "created_at",
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NotFound("user not found")
	case errors.Is(err, ErrSelfRole):
		return api.Conflict("SELF_ROLE_CHANGE", "admins cannot change their own role")
	default:
		return err
	}
}

func session(w http.ResponseWriter, r *http.Request) (*identity.Session, bool) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.Fail(w, r, api.Unauthorized("missing session"))
		return nil, false
	}
	return s, true
}

func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	p, err := h.Users.Ensure(r.Context(), s.UserID, s.Email)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, NewMe(s, p))
}

// UpdateMe writes the profile row first. The identity provider sync that
// follows may fail; the response says so instead of failing the request.
func (h Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	req, err := req.Normalize()
	if err != nil {
		api.Fail(w, r, err)
		return
	}

	p, err := h.Users.Update(r.Context(), audit.Actor(identity.RoleCustomer, s.UserID), s.UserID, req)
	if err != nil {
		api.Fail(w, r, mapUserError(err))
		return
	}

	synced := h.sync(r, s.UserID, req)
	me := NewMe(s, p)
	me.IdentitySynced = &synced
	api.WriteJSON(w, http.StatusOK, me)
}

func (h Handlers) sync(r *http.Request, userID string, req UpdateRequest) bool {
	meta := req.Metadata()
	if len(meta) == 0 {
		return true
	}
	if h.Identity == nil {
		return false
	}
	if err := h.Identity.UpdateUserMetadata(r.Context(), userID, meta); err != nil {
		log := logging.FromContext(r.Context())
		if errors.Is(err, identity.ErrAdminDisabled) {
			log.Debug("identity metadata sync skipped", "user_id", userID)
		} else {
			log.Warn("identity metadata sync failed", "user_id", userID, "error", err)
		}
		return false
	}
	return true
}

func (h Handlers) AdminList(w http.ResponseWriter, r *http.Request) {
	q, err := listing.Parse(r.URL.Query(), adminListSpec)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	items, total, err := h.Users.List(r.Context(), q)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, listing.NewPage(items, total, q))
}

func (h Handlers) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req RoleRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapUserError(ErrNotFound))
		return
	}
	if id == s.UserID {
		api.Fail(w, r, mapUserError(ErrSelfRole))
		return
	}

	p, err := h.Users.SetRole(r.Context(), audit.Actor(identity.RoleAdmin, s.UserID), id, role)
	if err != nil {
		api.Fail(w, r, mapUserError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}
