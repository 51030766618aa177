package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"vendara-integration/internal/engine/ingest"
	"vendara-integration/internal/engine/messages"
	"vendara-integration/internal/engine/webhook"
	"vendara-integration/internal/pkg/metrics"
	"vendara-integration/internal/platform/models"
)

// WebhookHandler is the provider-facing endpoint: subscription handshake on
// GET, signed deliveries on POST. Responses follow the provider contract:
// 401 on auth failure, 200 on acceptance (duplicates included), 5xx when the
// provider should redeliver.
type WebhookHandler struct {
	gate       *webhook.Gate
	ingestSvc  *ingest.Service
	messageSvc *messages.Service
}

func NewWebhookHandler(gate *webhook.Gate, ingestSvc *ingest.Service, messageSvc *messages.Service) *WebhookHandler {
	return &WebhookHandler{gate: gate, ingestSvc: ingestSvc, messageSvc: messageSvc}
}

// Verify answers the provider's GET handshake when the webhook subscription
// is created.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if h.gate.VerifyHandshake(query.Get("hub.mode"), query.Get("hub.verify_token")) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(query.Get("hub.challenge")))
		return
	}
	writeWebhookError(w, http.StatusForbidden, "VerificationFailed")
}

// Receive handles one signed webhook delivery.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookRequestsTotal.Inc()

	rawBody, err := h.gate.Authenticate(r)
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
			metrics.WebhookRejectedTotal.Inc()
			writeWebhookError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, webhook.ErrNotConfigured):
			writeWebhookError(w, http.StatusInternalServerError, err.Error())
		default:
			writeWebhookError(w, http.StatusInternalServerError, "TransientFailure")
		}
		return
	}

	envelope, err := webhook.ParseEnvelope(rawBody)
	if err != nil {
		// The payload is authentic but unusable; redelivery would not help,
		// so acknowledge and keep the detail in the log.
		log.Warn().Err(err).Msg("discarding unparseable webhook payload")
		writeWebhookOK(w)
		return
	}

	for _, msg := range envelope.Messages {
		outcome, err := h.ingestSvc.Ingest(r.Context(), msg)
		if errors.Is(err, ingest.ErrMissingMessageID) {
			log.Warn().Str("from", msg.From).Msg("skipping message without provider id")
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("inbound ingestion failed")
			writeWebhookError(w, http.StatusServiceUnavailable, "TransientFailure")
			return
		}
		switch outcome {
		case ingest.OutcomeNew:
			metrics.InboundMessagesTotal.Inc()
		case ingest.OutcomeDuplicate:
			metrics.InboundDuplicatesTotal.Inc()
		}
	}

	for _, st := range envelope.Statuses {
		status, ok := models.ParseDeliveryStatus(st.Status)
		if !ok {
			log.Info().Str("status", st.Status).Str("provider_message_id", st.ID).
				Msg("unsupported status value, ignoring")
			metrics.StatusIgnoredTotal.Inc()
			continue
		}

		outcome, err := h.messageSvc.ApplyStatus(r.Context(), st.ID, status, st.OccurredAt(), st.ErrorDetail())
		if err != nil {
			log.Error().Err(err).Msg("status reconciliation failed")
			writeWebhookError(w, http.StatusServiceUnavailable, "TransientFailure")
			return
		}
		if outcome.Applied {
			metrics.StatusAppliedTotal.Inc()
		} else {
			metrics.StatusIgnoredTotal.Inc()
		}
	}

	writeWebhookOK(w)
}

func writeWebhookOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeWebhookError(w http.ResponseWriter, status int, category string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": category})
}
