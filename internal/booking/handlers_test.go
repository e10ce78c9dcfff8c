package booking_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"movebooking/internal/api"
	"movebooking/internal/booking"
	"movebooking/internal/booking/mocks"
	"movebooking/internal/catalog"
	"movebooking/internal/listing"
	"movebooking/internal/team"
	"movebooking/pkg/identity"
)

const (
	ownerID = "5e0f7c2a-1d3b-4c8e-9f6a-2b7d8e9f0a1b"
	otherID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	bookID  = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
	teamID  = "3f1c2a9e-5b7d-4e21-9a8f-0c6b1d2e3f4a"
)

type teamsStub map[string]*team.Team

func (s teamsStub) Get(_ context.Context, id string) (*team.Team, error) {
	if t, ok := s[id]; ok {
		return t, nil
	}
	return nil, team.ErrNotFound
}

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func stored(status booking.Status) booking.Booking {
	return booking.Booking{
		ID:           bookID,
		UserID:       ownerID,
		ServiceType:  "Apartment Move",
		FromLocation: "Kilimani",
		ToLocation:   "Westlands",
		BookingDate:  booking.NewDate(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		Status:       status,
		AddOns:       []string{},
		Version:      1,
	}
}

// runMutate makes the mock behave like the repository: run fn against cur and
// return the resulting booking.
func runMutate(cur booking.Booking) func(context.Context, booking.Scope, string, booking.Actor, booking.MutateFunc) (*booking.Booking, error) {
	return func(_ context.Context, scope booking.Scope, _ string, _ booking.Actor, fn booking.MutateFunc) (*booking.Booking, error) {
		if scope.OwnerID != "" && scope.OwnerID != cur.UserID {
			return nil, booking.ErrNotFound
		}
		ch, err := fn(cur)
		if err != nil {
			return nil, err
		}
		next := ch.Booking
		next.Version = cur.Version + 1
		return &next, nil
	}
}

func newRouter(store booking.Store, pub *recordingPublisher, userID string) http.Handler {
	h := booking.Handlers{
		Bookings:  store,
		Catalog:   catalog.Default(),
		Teams:     teamsStub{teamID: {ID: teamID, Name: "Crew A", Status: team.StatusActive}, "7c6d5e4f-3a2b-4c1d-8e9f-0a1b2c3d4e5f": {ID: "7c6d5e4f-3a2b-4c1d-8e9f-0a1b2c3d4e5f", Status: team.StatusInactive}},
		Publisher: pub,
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s := &identity.Session{UserID: userID, Role: identity.RoleCustomer}
			next.ServeHTTP(w, req.WithContext(api.WithSession(req.Context(), s)))
		})
	})
	r.Post("/v1/bookings", h.Create)
	r.Get("/v1/bookings", h.List)
	r.Get("/v1/bookings/{id}", h.Get)
	r.Patch("/v1/bookings/{id}", h.Update)
	r.Put("/v1/bookings/{id}/status", h.UpdateStatus)
	r.Delete("/v1/bookings/{id}", h.Delete)
	r.Get("/v1/bookings/{id}/events", h.Events)
	r.Get("/v1/admin/bookings", h.AdminList)
	r.Put("/v1/admin/bookings/{id}/status", h.AdminUpdateStatus)
	r.Put("/v1/admin/bookings/{id}/assign-team", h.AssignTeam)
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env api.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHandlers_Create(t *testing.T) {
	t.Run("quotes selected service and persists pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		pub := &recordingPublisher{}

		store.EXPECT().
			Create(gomock.Any(), gomock.Any(), booking.Actor{UserID: ownerID, Role: identity.RoleCustomer}).
			DoAndReturn(func(_ context.Context, b booking.Booking, _ booking.Actor) (*booking.Booking, error) {
				if b.UserID != ownerID || b.Status != booking.StatusPending {
					t.Fatalf("unexpected booking to insert: %#v", b)
				}
				if b.EstimatedCost == nil || *b.EstimatedCost != 13000 || b.ServiceType != "Apartment Move" {
					t.Fatalf("expected server quote, got %#v", b)
				}
				b.ID = bookID
				b.Version = 1
				return &b, nil
			})

		body := `{"from_location":"Kilimani","to_location":"Westlands","booking_date":"2025-03-14",
			"service_id":"apartment-move","floor_level":3,"add_ons":["Full unpacking service"],"estimated_cost":13000}`
		rec := do(newRouter(store, pub, ownerID), http.MethodPost, "/v1/bookings", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
		}
		var got booking.Booking
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != bookID || got.Status != booking.StatusPending || got.BookingDate.String() != "2025-03-14" {
			t.Fatalf("unexpected response: %#v", got)
		}
		if len(pub.keys) != 1 || pub.keys[0] != "booking.created" {
			t.Fatalf("expected booking.created, got %v", pub.keys)
		}
	})

	t.Run("validation failures write nothing", func(t *testing.T) {
		bodies := map[string]string{
			"missing to":       `{"service_type":"Move","from_location":"A","to_location":" ","booking_date":"2025-03-14"}`,
			"bad date":         `{"service_type":"Move","from_location":"A","to_location":"B","booking_date":"2025-02-30"}`,
			"estimate stale":   `{"from_location":"A","to_location":"B","booking_date":"2025-03-14","service_id":"bedsitter-move","estimated_cost":3000}`,
			"status smuggled":  `{"service_type":"Move","from_location":"A","to_location":"B","booking_date":"2025-03-14","status":"completed"}`,
			"user id smuggled": `{"service_type":"Move","from_location":"A","to_location":"B","booking_date":"2025-03-14","user_id":"x"}`,
			"invalid json":     `{`,
		}
		for name, body := range bodies {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl) // no expectations: any call fails the test
			rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPost, "/v1/bookings", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", name, rec.Code)
			}
		}
	})

	t.Run("estimate mismatch code", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		body := `{"from_location":"A","to_location":"B","booking_date":"2025-03-14","service_id":"bedsitter-move","estimated_cost":3000}`
		rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPost, "/v1/bookings", body)
		if code := errorCode(t, rec); code != booking.CodeEstimateMismatch {
			t.Fatalf("expected %s, got %s", booking.CodeEstimateMismatch, code)
		}
	})

	t.Run("store failure is 500 and not published", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		pub := &recordingPublisher{}
		store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		body := `{"service_type":"Move","from_location":"A","to_location":"B","booking_date":"2025-03-14"}`
		rec := do(newRouter(store, pub, ownerID), http.MethodPost, "/v1/bookings", body)
		if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != api.CodeUpstream {
			t.Fatalf("expected 500 %s, got %d %s", api.CodeUpstream, rec.Code, rec.Body.String())
		}
		if len(pub.keys) != 0 {
			t.Fatalf("nothing should be published on failure")
		}
	})
}

func TestHandlers_UpdateStatus(t *testing.T) {
	cases := []struct {
		name   string
		cur    booking.Status
		userID string
		body   string
		status int
		code   string
	}{
		{"pending to cancelled", booking.StatusPending, ownerID, `{"status":"cancelled"}`, 200, ""},
		{"confirmed to cancelled", booking.StatusConfirmed, ownerID, `{"status":"cancelled"}`, 200, ""},
		{"version matches", booking.StatusPending, ownerID, `{"status":"cancelled","version":1}`, 200, ""},
		{"stale version", booking.StatusPending, ownerID, `{"status":"cancelled","version":0}`, 409, "VERSION_CONFLICT"},
		{"terminal", booking.StatusCompleted, ownerID, `{"status":"cancelled"}`, 409, "INVALID_STATE_TRANSITION"},
		{"not owner", booking.StatusPending, otherID, `{"status":"cancelled"}`, 404, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl)
			pub := &recordingPublisher{}
			store.EXPECT().
				Mutate(gomock.Any(), booking.OwnedBy(tc.userID), bookID, gomock.Any(), gomock.Any()).
				DoAndReturn(runMutate(stored(tc.cur)))

			rec := do(newRouter(store, pub, tc.userID), http.MethodPut, "/v1/bookings/"+bookID+"/status", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.code != "" {
				if got := errorCode(t, rec); got != tc.code {
					t.Fatalf("expected %s, got %s", tc.code, got)
				}
				if len(pub.keys) != 0 {
					t.Fatalf("rejected transitions must not publish")
				}
				return
			}
			var got booking.Booking
			_ = json.Unmarshal(rec.Body.Bytes(), &got)
			if got.Version != 2 {
				t.Fatalf("expected version bump, got %d", got.Version)
			}
		})
	}

	for _, next := range []string{"confirmed", "in_progress", "completed", "pending"} {
		t.Run("owner cannot move to "+next, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl)
			pub := &recordingPublisher{}
			rec := do(newRouter(store, pub, ownerID), http.MethodPut, "/v1/bookings/"+bookID+"/status", `{"status":"`+next+`"}`)
			if rec.Code != http.StatusConflict || errorCode(t, rec) != "INVALID_STATE_TRANSITION" {
				t.Fatalf("expected 409 INVALID_STATE_TRANSITION, got %d %s", rec.Code, rec.Body.String())
			}
			if len(pub.keys) != 0 {
				t.Fatalf("rejected transitions must not publish")
			}
		})
	}

	t.Run("unknown status is rejected before the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPut, "/v1/bookings/"+bookID+"/status", `{"status":"archived"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		pub := &recordingPublisher{err: errors.New("broker down")}
		store.EXPECT().Mutate(gomock.Any(), gomock.Any(), bookID, gomock.Any(), gomock.Any()).DoAndReturn(runMutate(stored(booking.StatusPending)))

		rec := do(newRouter(store, pub, ownerID), http.MethodPut, "/v1/bookings/"+bookID+"/status", `{"status":"cancelled"}`)
		if rec.Code != http.StatusOK || len(pub.keys) != 1 || pub.keys[0] != "booking.status_changed" {
			t.Fatalf("expected 200 with attempted publish, got %d %v", rec.Code, pub.keys)
		}
	})
}

func TestHandlers_Update(t *testing.T) {
	t.Run("pending is editable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Mutate(gomock.Any(), booking.OwnedBy(ownerID), bookID, gomock.Any(), gomock.Any()).DoAndReturn(runMutate(stored(booking.StatusPending)))

		rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPatch, "/v1/bookings/"+bookID, `{"notes":"Third floor, no lift"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("confirmed is locked", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Mutate(gomock.Any(), gomock.Any(), bookID, gomock.Any(), gomock.Any()).DoAndReturn(runMutate(stored(booking.StatusConfirmed)))

		rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPatch, "/v1/bookings/"+bookID, `{"notes":"late change"}`)
		if rec.Code != http.StatusConflict || errorCode(t, rec) != "BOOKING_NOT_EDITABLE" {
			t.Fatalf("expected 409 BOOKING_NOT_EDITABLE, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("status is not an editable field", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPatch, "/v1/bookings/"+bookID, `{"status":"completed"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandlers_AssignTeam(t *testing.T) {
	t.Run("pending becomes confirmed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		pub := &recordingPublisher{}
		store.EXPECT().
			Mutate(gomock.Any(), booking.AnyOwner, bookID, booking.Actor{UserID: ownerID, Role: identity.RoleAdmin}, gomock.Any()).
			DoAndReturn(runMutate(stored(booking.StatusPending)))

		rec := do(newRouter(store, pub, ownerID), http.MethodPut, "/v1/admin/bookings/"+bookID+"/assign-team", `{"team_id":"`+teamID+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		var got booking.Booking
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != booking.StatusConfirmed || got.TeamID == nil || *got.TeamID != teamID {
			t.Fatalf("unexpected booking: %#v", got)
		}
		if got.AssignedDate == nil || got.AssignedDate.String() != "2025-03-14" {
			t.Fatalf("assigned date should default to booking date, got %v", got.AssignedDate)
		}
		if len(pub.keys) != 1 || pub.keys[0] != "booking.team_assigned" {
			t.Fatalf("unexpected publish keys %v", pub.keys)
		}
	})

	rejects := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown team", `{"team_id":"1b2c3d4e-5f6a-4b7c-8d9e-0f1a2b3c4d5e"}`, 404},
		{"inactive team", `{"team_id":"7c6d5e4f-3a2b-4c1d-8e9f-0a1b2c3d4e5f"}`, 409},
		{"malformed team id", `{"team_id":"crew-a"}`, 400},
		{"bad date", `{"team_id":"` + teamID + `","assigned_date":"tomorrow"}`, 400},
	}
	for _, tc := range rejects {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl)
			rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodPut, "/v1/admin/bookings/"+bookID+"/assign-team", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

// The team passes the pre-check but is deactivated or deleted before the
// booking row is written; the store's in-transaction check decides.
func TestHandlers_AssignTeamRecheckedInStore(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"deactivated meanwhile", team.ErrInactive, 409, "TEAM_INACTIVE"},
		{"deleted meanwhile", team.ErrNotFound, 404, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl)
			pub := &recordingPublisher{}
			store.EXPECT().
				Mutate(gomock.Any(), booking.AnyOwner, bookID, gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ booking.Scope, _ string, _ booking.Actor, fn booking.MutateFunc) (*booking.Booking, error) {
					ch, err := fn(stored(booking.StatusPending))
					if err != nil {
						t.Fatalf("policy: %v", err)
					}
					if !ch.LockTeam {
						t.Fatalf("assignment must ask the store to lock the team")
					}
					return nil, tc.err
				})

			rec := do(newRouter(store, pub, ownerID), http.MethodPut, "/v1/admin/bookings/"+bookID+"/assign-team", `{"team_id":"`+teamID+`"}`)
			if rec.Code != tc.status || errorCode(t, rec) != tc.code {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.code, rec.Code, rec.Body.String())
			}
			if len(pub.keys) != 0 {
				t.Fatalf("failed assignment must not publish")
			}
		})
	}
}

func TestHandlers_AdminUpdateStatusRecordsReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		Mutate(gomock.Any(), booking.AnyOwner, bookID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ booking.Scope, _ string, _ booking.Actor, fn booking.MutateFunc) (*booking.Booking, error) {
			ch, err := fn(stored(booking.StatusConfirmed))
			if err != nil {
				return nil, err
			}
			if ch.Event.Data["reason"] != "truck breakdown" {
				t.Fatalf("expected reason in event data: %#v", ch.Event.Data)
			}
			return &ch.Booking, nil
		})

	rec := do(newRouter(store, &recordingPublisher{}, otherID), http.MethodPut, "/v1/admin/bookings/"+bookID+"/status", `{"status":"cancelled","reason":" truck breakdown "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandlers_ListScopesToOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, q *listing.Query) ([]booking.Booking, int, error) {
		where := q.WhereSQL()
		if !strings.Contains(where, "user_id = $") {
			t.Fatalf("customer listing must be scoped, got %q", where)
		}
		args := q.Args()
		if args[len(args)-1] != ownerID {
			t.Fatalf("expected owner id as last filter arg, got %#v", args)
		}
		return []booking.Booking{stored(booking.StatusPending)}, 1, nil
	})

	rec := do(newRouter(store, &recordingPublisher{}, ownerID), http.MethodGet, "/v1/bookings?status=pending&sort=booking_date&order=asc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var page listing.Page[booking.Booking]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %#v", page)
	}

	rec = do(newRouter(mocks.NewMockStore(gomock.NewController(t)), &recordingPublisher{}, ownerID), http.MethodGet, "/v1/bookings?limit=500", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", rec.Code)
	}
}

func TestHandlers_DeleteAndEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Delete(gomock.Any(), booking.OwnedBy(otherID), bookID, gomock.Any()).Return(booking.ErrNotFound)
	store.EXPECT().Get(gomock.Any(), booking.OwnedBy(otherID), bookID).Return(nil, booking.ErrNotFound)

	router := newRouter(store, &recordingPublisher{}, otherID)
	if rec := do(router, http.MethodDelete, "/v1/bookings/"+bookID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for someone else's booking, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/v1/bookings/"+bookID+"/events", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for someone else's timeline, got %d", rec.Code)
	}
}
