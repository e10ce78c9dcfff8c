package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/api"
	"movebooking/internal/catalog"
	"movebooking/internal/listing"
	"movebooking/internal/team"
	"movebooking/internal/validate"
	"movebooking/pkg/identity"
	"movebooking/pkg/logging"
)

type TeamLookup interface {
	Get(ctx context.Context, id string) (*team.Team, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Handlers struct {
	Bookings  Store
	Catalog   *catalog.Catalog
	Teams     TeamLookup
	Publisher EventPublisher
}

// Message is the broker payload for booking.* routing keys.
type Message struct {
	BookingID  string         `json:"booking_id"`
	UserID     string         `json:"user_id"`
	Status     Status         `json:"status"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

var userListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status": {Column: "status", Op: listing.Eq, Parse: listing.OneOf(statusStrings()...)},
		"from":   {Column: "booking_date", Op: listing.Gte, Parse: listing.ParseDate},
		"to":     {Column: "booking_date", Op: listing.Lte, Parse: listing.ParseDate},
	},
	Sorts:       map[string]string{"created_at": "created_at", "booking_date": "booking_date", "status": "status"},
	DefaultSort: "created_at",
}

var adminListSpec = listing.Spec{
	Filters: map[string]listing.Filter{
		"status":  userListSpec.Filters["status"],
		"from":    userListSpec.Filters["from"],
		"to":      userListSpec.Filters["to"],
		"user_id": {Column: "user_id", Op: listing.Eq, Parse: listing.ParseUUID},
		"team_id": {Column: "team_id", Op: listing.Eq, Parse: listing.ParseUUID},
	},
	Sorts: map[string]string{
		"created_at":     "created_at",
		"booking_date":   "booking_date",
		"status":         "status",
		"estimated_cost": "estimated_cost",
	},
	DefaultSort: "created_at",
}

func mapBookingError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return api.NotFound("booking not found")
	case errors.Is(err, ErrInvalidTransition):
		return api.Conflict("INVALID_STATE_TRANSITION", "invalid state transition")
	case errors.Is(err, ErrVersionConflict):
		return api.Conflict("VERSION_CONFLICT", "booking was modified by someone else; reload and retry")
	case errors.Is(err, ErrNotEditable):
		return api.Conflict("BOOKING_NOT_EDITABLE", "only pending bookings can be edited")
	case errors.Is(err, team.ErrNotFound):
		return api.NotFound("team not found")
	case errors.Is(err, ErrTeamInactive):
		return api.Conflict("TEAM_INACTIVE", "team is inactive")
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

func customerActor(s *identity.Session) Actor {
	return Actor{UserID: s.UserID, Role: identity.RoleCustomer}
}
func adminActor(s *identity.Session) Actor { return Actor{UserID: s.UserID, Role: identity.RoleAdmin} }

// publish is best effort; the database row is the source of truth.
func (h Handlers) publish(r *http.Request, key string, b *Booking, actor Actor, data map[string]any) {
	if h.Publisher == nil {
		return
	}
	msg := Message{BookingID: b.ID, UserID: b.UserID, Status: b.Status, Actor: actor.Role, OccurredAt: b.UpdatedAt, Data: data}
	if err := h.Publisher.PublishJSON(r.Context(), key, msg); err != nil {
		logging.FromContext(r.Context()).Warn("publish booking event failed", "key", key, "booking_id", b.ID, "error", err)
	}
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
	b, err := req.Normalize(h.Catalog)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	b.UserID = s.UserID

	actor := customerActor(s)
	created, err := h.Bookings.Create(r.Context(), b, actor)
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	h.publish(r, "booking.created", created, actor, map[string]any{"service_type": created.ServiceType, "booking_date": created.BookingDate.String()})
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
	items, total, err := h.Bookings.List(r.Context(), q)
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
	b, err := h.Bookings.Get(r.Context(), OwnedBy(s.UserID), chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) AdminGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), AnyOwner, chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req PatchRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}

	actor := customerActor(s)
	var changed map[string]any
	edit := Edit(req)
	b, err := h.Bookings.Mutate(r.Context(), OwnedBy(s.UserID), chi.URLParam(r, "id"), actor, func(cur Booking) (Change, error) {
		ch, err := edit(cur)
		changed = ch.Event.Data
		return ch, err
	})
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	h.publish(r, "booking.updated", b, actor, changed)
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	next, err := parseStatus(req.Status)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	if !OwnerMayRequest(next) {
		api.Fail(w, r, mapBookingError(ErrInvalidTransition))
		return
	}
	h.changeStatus(w, r, OwnedBy(s.UserID), customerActor(s), next, req.Version, "")
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
	next, err := parseStatus(req.Status)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if err := validate.MaxLen("reason", reason, 500); err != nil {
		api.Fail(w, r, err)
		return
	}
	h.changeStatus(w, r, AnyOwner, adminActor(s), next, req.Version, reason)
}

func (h Handlers) changeStatus(w http.ResponseWriter, r *http.Request, scope Scope, actor Actor, next Status, version *int, reason string) {
	var from Status
	change := ChangeStatus(next, version, reason)
	b, err := h.Bookings.Mutate(r.Context(), scope, chi.URLParam(r, "id"), actor, func(cur Booking) (Change, error) {
		from = cur.Status
		return change(cur)
	})
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	data := map[string]any{"from": from, "to": b.Status}
	if reason != "" {
		data["reason"] = reason
	}
	h.publish(r, "booking.status_changed", b, actor, data)
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) AssignTeam(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req AssignTeamRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	teamID := strings.TrimSpace(req.TeamID)
	if err := validate.First(validate.Required("team_id", teamID), validate.UUID("team_id", teamID)); err != nil {
		api.Fail(w, r, err)
		return
	}
	var assigned *time.Time
	if req.AssignedDate != nil {
		d, err := validate.Date("assigned_date", *req.AssignedDate)
		if err != nil {
			api.Fail(w, r, err)
			return
		}
		assigned = &d
	}

	t, err := h.Teams.Get(r.Context(), teamID)
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	if !t.IsActive() {
		api.Fail(w, r, mapBookingError(ErrTeamInactive))
		return
	}

	actor := adminActor(s)
	b, err := h.Bookings.Mutate(r.Context(), AnyOwner, chi.URLParam(r, "id"), actor, AssignTeam(t.ID, assigned, req.Version))
	if err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	h.publish(r, "booking.team_assigned", b, actor, map[string]any{"team_id": t.ID, "team_name": t.Name, "assigned_date": b.AssignedDate.String()})
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Bookings.Delete(r.Context(), OwnedBy(s.UserID), id, customerActor(s)); err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	if h.Publisher != nil {
		msg := Message{BookingID: id, UserID: s.UserID, Actor: identity.RoleCustomer, OccurredAt: time.Now().UTC()}
		if err := h.Publisher.PublishJSON(r.Context(), "booking.deleted", msg); err != nil {
			logging.FromContext(r.Context()).Warn("publish booking event failed", "key", "booking.deleted", "booking_id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events returns the owner's lifecycle timeline.
func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Bookings.Get(r.Context(), OwnedBy(s.UserID), id); err != nil {
		api.Fail(w, r, mapBookingError(err))
		return
	}
	evs, err := h.Bookings.Events(r.Context(), id)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": evs})
}
