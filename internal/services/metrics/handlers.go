package metrics

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/louisbranch/splitlab/internal/platform/errors"
	"github.com/louisbranch/splitlab/internal/platform/httpx"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
)

type handlers struct {
	service *Service
}

func newHandlers(service *Service) handlers {
	return handlers{service: service}
}

func (h handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/events", h.handleEvents)
	mux.HandleFunc("/stats", h.handleStats)
	mux.HandleFunc("/", h.handleNotFound)
}

type eventRequest struct {
	VisitorID string          `json:"visitor_id"`
	Variant   string          `json:"variant"`
	EventType string          `json:"event_type"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "invalid JSON"))
		return
	}
	err := h.service.Record(r.Context(), RecordRequest{
		VisitorID: req.VisitorID,
		Variant:   req.Variant,
		EventType: req.EventType,
		Metadata:  string(req.Metadata),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	query := r.URL.Query()
	report, err := h.service.Stats(r.Context(), storage.Filter{
		Variant:   query.Get("variant"),
		EventType: query.Get("event_type"),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, report)
}

func (h handlers) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSONError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	_ = httpx.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}
