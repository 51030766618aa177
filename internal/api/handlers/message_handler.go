package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	apiContext "vendara-integration/internal/api/context"
	"vendara-integration/internal/engine/messages"
	"vendara-integration/internal/pkg/errors"
	"vendara-integration/internal/platform/auth"

	stderrors "errors"
)

type MessageHandler struct {
	svc *messages.Service
}

func NewMessageHandler(svc *messages.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To   string `json:"to"`
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	msg, err := h.svc.Send(r.Context(), req.To, req.Body, claims.Service)
	if err != nil {
		if stderrors.Is(err, messages.ErrInvalidRequest) {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to queue message", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("message_id")

	msg, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Message not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load message", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	msgs, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list messages", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

// pagination reads limit/offset query params with sane bounds.
func pagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
