package support

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
	Tickets Store
}

var userListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status":   {Column: "status", Op: listing.Eq, Parse: listing.OneOf(statuses...)},
		"category": {Column: "category", Op: listing.Eq, Parse: listing.OneOf(categories...)},
	},
	Sorts:       map[string]string{"created_at": "created_at", "updated_at": "updated_at"},
	DefaultSort: "created_at",
}

var adminListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status":   userListSpec.Filters["status"],
		"category": userListSpec.Filters["category"],
		"priority": {Column: "priority", Op: listing.Eq, Parse: listing.OneOf(priorities...)},
		"user_id":  {Column: "user_id", Op: listing.Eq, Parse: listing.ParseUUID},
	},
	Sorts:       userListSpec.Sorts,
	DefaultSort: "created_at",
}

func mapTicketError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NotFound("support ticket not found")
	case errors.Is(err, ErrBookingNotFound):
		return api.NotFound("booking not found")
	default:
		return err
	}
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.Fail(w, r, api.Unauthorized("missing session"))
		return
	}
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
	t.UserID = s.UserID

	created, err := h.Tickets.Create(r.Context(), audit.Actor(identity.RoleCustomer, s.UserID), t)
	if err != nil {
		api.Fail(w, r, mapTicketError(err))
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.Fail(w, r, api.Unauthorized("missing session"))
		return
	}
	q, err := listing.Parse(r.URL.Query(), userListSpec)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	q.Where("user_id", listing.Eq, s.UserID)
	h.list(w, r, q)
}

func (h Handlers) AdminList(w http.ResponseWriter, r *http.Request) {
	q, err := listing.Parse(r.URL.Query(), adminListSpec)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	h.list(w, r, q)
}

func (h Handlers) list(w http.ResponseWriter, r *http.Request, q *listing.Query) {
	items, total, err := h.Tickets.List(r.Context(), q)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, listing.NewPage(items, total, q))
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.Fail(w, r, api.Unauthorized("missing session"))
		return
	}
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapTicketError(ErrNotFound))
		return
	}
	t, err := h.Tickets.Get(r.Context(), s.UserID, id)
	if err != nil {
		api.Fail(w, r, mapTicketError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, t)
}

func (h Handlers) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var patch AdminPatch
	if err := api.DecodeJSON(w, r, &patch); err != nil {
		api.Fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapTicketError(ErrNotFound))
		return
	}

	actor := "admin:unknown"
	if s := api.SessionFromContext(r.Context()); s != nil {
		actor = audit.Actor(identity.RoleAdmin, s.UserID)
	}
	t, err := h.Tickets.Update(r.Context(), actor, id, patch)
	if err != nil {
		api.Fail(w, r, mapTicketError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, t)
}
