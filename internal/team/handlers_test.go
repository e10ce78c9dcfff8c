package team

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/listing"
)

const (
	crewA   = "3f1c2a9e-8b4d-4e6f-9a1b-2c3d4e5f6a7b"
	missing = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
)

type fakeStore struct {
	teams     map[string]*Team
	activeFor map[string]bool
	calls     int
}

func (f *fakeStore) List(_ context.Context, q *listing.Query) ([]Team, int, error) {
	var out []Team
	for _, t := range f.teams {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Team, error) {
	f.calls++
	t, ok := f.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) Create(_ context.Context, _ string, t Team) (*Team, error) {
	for _, existing := range f.teams {
		if existing.Name == t.Name {
			return nil, ErrNameTaken
		}
	}
	t.ID = "t" + string(rune('0'+len(f.teams)+1))
	f.teams[t.ID] = &t
	return &t, nil
}

func (f *fakeStore) Update(_ context.Context, _ string, id string, p PatchRequest) (*Team, error) {
	f.calls++
	cur, ok := f.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := p.Apply(*cur)
	if err != nil {
		return nil, err
	}
	f.teams[id] = &next
	return &next, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, id string) error {
	f.calls++
	if _, ok := f.teams[id]; !ok {
		return ErrNotFound
	}
	if f.activeFor[id] {
		return ErrHasActiveBookings
	}
	delete(f.teams, id)
	return nil
}

func newTestRouter(store *fakeStore) http.Handler {
	h := Handlers{Teams: store}
	r := chi.NewRouter()
	r.Get("/teams", h.List)
	r.Post("/teams", h.Create)
	r.Get("/teams/{id}", h.Get)
	r.Patch("/teams/{id}", h.Update)
	r.Delete("/teams/{id}", h.Delete)
	return r
}

func TestHandlers_TeamLifecycle(t *testing.T) {
	store := &fakeStore{
		teams:     map[string]*Team{crewA: {ID: crewA, Name: "Crew A", LeaderName: "Achieng", MemberCount: 4, Status: StatusActive}},
		activeFor: map[string]bool{crewA: true},
	}
	router := newTestRouter(store)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"create", http.MethodPost, "/teams", `{"name":"Crew B","leader_name":"Kamau","member_count":3}`, 201},
		{"duplicate name", http.MethodPost, "/teams", `{"name":"Crew A","leader_name":"Kamau","member_count":3}`, 409},
		{"invalid", http.MethodPost, "/teams", `{"name":"Crew C","leader_name":"Kamau","member_count":0}`, 400},
		{"get missing", http.MethodGet, "/teams/" + missing, "", 404},
		{"patch", http.MethodPatch, "/teams/" + crewA, `{"status":"inactive"}`, 200},
		{"delete with active bookings", http.MethodDelete, "/teams/" + crewA, "", 409},
		{"list bad filter", http.MethodGet, "/teams?status=busy", "", 400},
		{"list", http.MethodGet, "/teams?status=active", "", 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	store.activeFor[crewA] = false
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/teams/"+crewA, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHandlers_MalformedTeamIDIsNotFound(t *testing.T) {
	store := &fakeStore{teams: map[string]*Team{}, activeFor: map[string]bool{}}
	router := newTestRouter(store)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		for _, id := range []string{"abc", "t1", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
			req := httptest.NewRequest(method, "/teams/"+id, strings.NewReader(`{"status":"inactive"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("%s %s: expected 404, got %d body=%s", method, id, rec.Code, rec.Body.String())
			}
		}
	}
	if store.calls != 0 {
		t.Fatalf("malformed ids must not reach the store, got %d calls", store.calls)
	}
}
