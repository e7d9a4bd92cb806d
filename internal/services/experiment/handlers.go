package experiment

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/louisbranch/splitlab/internal/platform/errors"
	"github.com/louisbranch/splitlab/internal/platform/httpx"
)

type handlers struct {
	service *Service
}

func newHandlers(service *Service) handlers {
	return handlers{service: service}
}

func (h handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/assign", h.handleAssign)
	mux.HandleFunc("/config", h.handleConfig)
	mux.HandleFunc("/admin/config", h.handleAdminConfig)
	mux.HandleFunc("/", h.handleNotFound)
}

type assignResponse struct {
	VisitorID               string `json:"visitor_id"`
	Variant                 string `json:"variant"`
	ExperimentEnabled       bool   `json:"experimentEnabled"`
	PreferredVariantApplied bool   `json:"preferredVariantApplied"`
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handlers) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	query := r.URL.Query()
	result, err := h.service.Assign(r.Context(), query.Get("visitor_id"), query.Get("preferred_variant"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, assignResponse{
		VisitorID:               result.VisitorID,
		Variant:                 result.Variant,
		ExperimentEnabled:       result.ExperimentEnabled,
		PreferredVariantApplied: result.PreferredVariantApplied,
	})
}

func (h handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeFlags(w, r)
}

func (h handlers) handleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeFlags(w, r)
	case http.MethodPut:
		h.updateFlags(w, r)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (h handlers) writeFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.Flags(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, flags)
}

func (h handlers) updateFlags(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "invalid JSON"))
		return
	}
	flags, err := h.service.UpdateFlags(r.Context(), patch)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, flags)
}

func (h handlers) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSONError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	_ = httpx.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}
