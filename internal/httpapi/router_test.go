package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movebooking/pkg/config"
	"movebooking/pkg/identity"
)

// Routes exercised here answer before any store is touched, so no database is needed.
func TestRouter_PublicAndGuardedRoutes(t *testing.T) {
	router := NewRouter(Dependencies{
		Cfg:      config.Config{AppEnv: "test", AllowedOrigins: []string{"http://localhost:5173"}, Payments: config.PaymentsConfig{WebhookSecret: "s3cret", Currency: "KES"}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verifier: identity.Verifier{Secret: "test-secret", Audience: "authenticated"},
	})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", "", 200},
		{"catalog", http.MethodGet, "/v1/catalog/services?category=Residential", "", 200},
		{"offering", http.MethodGet, "/v1/catalog/services/piano-move", "", 200},
		{"estimate", http.MethodPost, "/v1/estimates", `{"service_id":"bedsitter-move","floor_level":0}`, 200},
		{"bookings need a token", http.MethodGet, "/v1/bookings", "", 401},
		{"admin needs a token", http.MethodGet, "/v1/admin/stats", "", 401},
		{"unsigned callback", http.MethodPost, "/v1/webhooks/payments", `{"reference":"x","status":"completed"}`, 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Trace-ID") == "" {
				t.Fatalf("expected trace id header")
			}
		})
	}
}

func TestRouter_BadTokenRejected(t *testing.T) {
	router := NewRouter(Dependencies{
		Cfg:      config.Config{AppEnv: "test"},
		Verifier: identity.Verifier{Secret: "test-secret"},
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
