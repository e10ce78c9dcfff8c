package team

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/api"
	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/internal/validate"
	"movebooking/pkg/identity"
)

type Handlers struct {
	Teams Store
}

var listSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status": {Column: "status", Op: listing.Eq, Parse: listing.OneOf(string(StatusActive), string(StatusInactive))},
	},
	Sorts:       map[string]string{"name": "name", "created_at": "created_at", "member_count": "member_count"},
	DefaultSort: "created_at",
}

func mapTeamError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NotFound("team not found")
	case errors.Is(err, ErrNameTaken):
		return api.Conflict("TEAM_NAME_TAKEN", "a team with this name already exists")
	case errors.Is(err, ErrHasActiveBookings):
		return api.Conflict("TEAM_HAS_ACTIVE_BOOKINGS", "team is assigned to confirmed or in-progress bookings")
	default:
		return err
	}
}

func adminActor(r *http.Request) string {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		return "admin:unknown"
	}
	return audit.Actor(identity.RoleAdmin, s.UserID)
}

// teamID reads {id}. A malformed id cannot name a row, so it is a 404.
func teamID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapTeamError(ErrNotFound))
		return "", false
	}
	return id, true
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	q, err := listing.Parse(r.URL.Query(), listSpec)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	items, total, err := h.Teams.List(r.Context(), q)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, listing.NewPage(items, total, q))
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := teamID(w, r)
	if !ok {
		return
	}
	t, err := h.Teams.Get(r.Context(), id)
	if err != nil {
		api.Fail(w, r, mapTeamError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, t)
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	t, err := req.Normalize()
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	created, err := h.Teams.Create(r.Context(), adminActor(r), t)
	if err != nil {
		api.Fail(w, r, mapTeamError(err))
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := teamID(w, r)
	if !ok {
		return
	}
	var req PatchRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	updated, err := h.Teams.Update(r.Context(), adminActor(r), id, req)
	if err != nil {
		api.Fail(w, r, mapTeamError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, updated)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := teamID(w, r)
	if !ok {
		return
	}
	if err := h.Teams.Delete(r.Context(), adminActor(r), id); err != nil {
		api.Fail(w, r, mapTeamError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
