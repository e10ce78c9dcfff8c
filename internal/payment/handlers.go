package payment

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/api"
	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/internal/validate"
	"movebooking/pkg/identity"
)

type Handlers struct {
	Payments Store
	// Currency applies when a request omits one.
	Currency string
}

var userListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status":     {Column: "status", Op: listing.Eq, Parse: listing.OneOf(statuses...)},
		"booking_id": {Column: "booking_id", Op: listing.Eq, Parse: listing.ParseUUID},
	},
	Sorts:       map[string]string{"created_at": "created_at", "amount": "amount"},
	DefaultSort: "created_at",
}

var adminListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status":     userListSpec.Filters["status"],
		"booking_id": userListSpec.Filters["booking_id"],
		"method":     {Column: "method", Op: listing.Eq, Parse: listing.OneOf(methods...)},
		"user_id":    {Column: "user_id", Op: listing.Eq, Parse: listing.ParseUUID},
	},
	Sorts:       userListSpec.Sorts,
	DefaultSort: "created_at",
}

func mapPaymentError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NotFound("payment not found")
	case errors.Is(err, ErrBookingNotFound):
		return api.NotFound("booking not found")
	case errors.Is(err, ErrInvalidTransition):
		return api.Conflict("INVALID_STATE_TRANSITION", "invalid payment status transition")
	case errors.Is(err, ErrReferenceTaken):
		return api.Conflict("REFERENCE_TAKEN", "payment reference already used")
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

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	p, err := req.Normalize(h.Currency)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	p.UserID = s.UserID

	created, err := h.Payments.Create(r.Context(), p, audit.Actor(identity.RoleCustomer, s.UserID))
	if err != nil {
		api.Fail(w, r, mapPaymentError(err))
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
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
	items, total, err := h.Payments.List(r.Context(), q)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, listing.NewPage(items, total, q))
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapPaymentError(ErrNotFound))
		return
	}
	p, err := h.Payments.Get(r.Context(), s.UserID, id)
	if err != nil {
		api.Fail(w, r, mapPaymentError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

type AdminStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h Handlers) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req AdminStatusRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	next, err := ParseStatusInput(req.Status)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if validate.UUID("id", id) != nil {
		api.Fail(w, r, mapPaymentError(ErrNotFound))
		return
	}

	p, err := h.Payments.UpdateStatus(r.Context(), id, next, audit.Actor(identity.RoleAdmin, s.UserID), strings.TrimSpace(req.Reason))
	if err != nil {
		api.Fail(w, r, mapPaymentError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}
