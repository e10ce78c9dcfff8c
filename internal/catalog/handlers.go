package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"movebooking/internal/api"
	"movebooking/internal/validate"
)

type Handlers struct {
	Catalog *Catalog
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("category"))
	if raw == "" {
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": h.Catalog.All()})
		return
	}
	cat, err := ParseCategory(raw)
	if err != nil {
		api.Fail(w, r, api.BadRequest(validate.CodeFailed, "category must be Residential, Commercial or Specialized"))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": h.Catalog.ByCategory(cat)})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Catalog.ByID(chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, r, api.NotFound("service not found"))
		return
	}
	api.WriteJSON(w, http.StatusOK, o)
}

type EstimateRequest struct {
	ServiceID  string   `json:"service_id"`
	FloorLevel int      `json:"floor_level"`
	AddOns     []string `json:"add_ons"`
}

func (h Handlers) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Fail(w, r, err)
		return
	}
	if err := validate.Required("service_id", req.ServiceID); err != nil {
		api.Fail(w, r, err)
		return
	}

	o, err := h.Catalog.ByID(req.ServiceID)
	if errors.Is(err, ErrNotFound) {
		api.Fail(w, r, api.BadRequest("UNKNOWN_SERVICE", "unknown service_id"))
		return
	}

	b, err := Quote(o, req.FloorLevel, req.AddOns)
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}
