package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"vendara-integration/internal/engine/webhook"
	"vendara-integration/internal/platform/models"
)

// Outcome of one ingestion attempt. Both outcomes are success from the
// provider's point of view; only an error means "retry this delivery".
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeDuplicate Outcome = "duplicate"
)

// ErrMissingMessageID marks a message entry that cannot be deduplicated.
var ErrMissingMessageID = errors.New("message has no provider message id")

// EventRepository is the slice of the inbound-event store this service needs.
type EventRepository interface {
	InsertNew(ctx context.Context, event *models.InboundEvent) (bool, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
}

// Publisher receives each newly recorded inbound message exactly once.
type Publisher interface {
	PublishInbound(event *models.InboundEvent) error
}

type Service struct {
	repo      EventRepository
	publisher Publisher
}

func NewService(repo EventRepository, publisher Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Ingest records one verified inbound message. Deduplication happens at the
// storage layer: the insert either wins (new) or hits the unique constraint
// (duplicate, no side effects). A storage error propagates unchanged so the
// caller can answer with a retryable status; it is never reported as a
// duplicate.
func (s *Service) Ingest(ctx context.Context, msg webhook.Message) (Outcome, error) {
	if msg.ID == "" {
		return "", ErrMissingMessageID
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("snapshot message payload: %w", err)
	}
	digest := sha256.Sum256(payload)

	event := &models.InboundEvent{
		ProviderMessageID: msg.ID,
		From:              msg.From,
		MessageType:       msg.Kind(),
		Payload:           payload,
		PayloadDigest:     hex.EncodeToString(digest[:]),
	}

	created, err := s.repo.InsertNew(ctx, event)
	if err != nil {
		return "", err
	}
	if !created {
		log.Debug().
			Str("provider_message_id", msg.ID).
			Msg("duplicate webhook delivery, skipping")
		return OutcomeDuplicate, nil
	}

	if err := s.publisher.PublishInbound(event); err != nil {
		// The event is durably recorded; it will not be dispatched again as
		// new, so surface the failure on the row and in the log.
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("provider_message_id", msg.ID).
			Msg("failed to hand off inbound message")
		if markErr := s.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("event_id", event.ID).Msg("failed to mark event failed")
		}
		return OutcomeNew, nil
	}

	if err := s.repo.MarkProcessed(ctx, event.ID); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark event processed")
	}

	log.Info().
		Str("event_id", event.ID).
		Str("provider_message_id", msg.ID).
		Str("message_type", event.MessageType).
		Msg("inbound message ingested")

	return OutcomeNew, nil
}
