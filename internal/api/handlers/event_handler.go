package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "vendara-integration/internal/api/context"
	"vendara-integration/internal/pkg/errors"
	"vendara-integration/internal/platform/repositories"

	stderrors "errors"
)

// EventHandler exposes the inbound-event audit log to operators and other
// platform services.
type EventHandler struct {
	repo *repositories.InboundEventRepository
}

func NewEventHandler(repo *repositories.InboundEventRepository) *EventHandler {
	return &EventHandler{repo: repo}
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("event_id")

	event, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Event not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load event", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	events, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list events", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
