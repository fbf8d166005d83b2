package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zoravur/spooky-engine/engine/update"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/enginelog"
	"github.com/zoravur/spooky-engine/wire"
	"go.uber.org/zap"
)

func (h *Handler) handleRegisterView(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	root, err := wire.FromWirePlan(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	paramKeys := make([]string, 0, len(req.Params))
	paramVals := make([]value.Value, 0, len(req.Params))
	for k, v := range req.Params {
		paramKeys = append(paramKeys, k)
		paramVals = append(paramVals, value.FromAny(v))
	}
	params := value.NewObject(paramKeys, paramVals)

	upd, err := h.Circuit.RegisterView(root, req.ID, params, update.ParseFormat(req.Format))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "update": upd})
}

func (h *Handler) handleUnregisterView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.Circuit.UnregisterView(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req wire.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updates, err := h.Circuit.IngestBatch(req.Entries, req.Optimistic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, u := range updates {
		h.Hub.Broadcast(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"updates": updates})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		enginelog.L().Warn("httpapi: response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
