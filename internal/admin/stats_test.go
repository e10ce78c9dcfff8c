package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"movebooking/internal/booking"
)

type fakeStats struct {
	since time.Time
	err   error
}

func (f *fakeStats) Stats(_ context.Context, since time.Time) (*Stats, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	counts := ZeroCounts()
	counts[booking.StatusPending] = 3
	return &Stats{BookingsByStatus: counts, TotalBookings: 3, Revenue: decimal.RequireFromString("13000.50")}, nil
}

func TestHandlers_Get(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	store := &fakeStats{}
	h := Handlers{Stats: store, Now: func() time.Time { return now }}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !store.since.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("unexpected window start %s", store.since)
	}

	var body struct {
		ByStatus map[string]int `json:"bookings_by_status"`
		Revenue  string         `json:"completed_revenue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.ByStatus) != len(booking.Statuses) || body.ByStatus["pending"] != 3 || body.ByStatus["cancelled"] != 0 {
		t.Fatalf("expected every status present, got %v", body.ByStatus)
	}
	if body.Revenue != "13000.5" {
		t.Fatalf("expected revenue as decimal string, got %q", body.Revenue)
	}
}

func TestHandlers_GetFailsOnStoreError(t *testing.T) {
	h := Handlers{Stats: &fakeStats{err: errors.New("count users: timeout")}}
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
