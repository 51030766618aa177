package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"vendara-integration/internal/platform/models"
)

// IgnoreReason classifies status callbacks that were received, recorded in
// the log, and deliberately not applied. Neither is an error: out-of-order
// and orphan callbacks are routine with at-least-once webhook delivery.
type IgnoreReason string

const (
	IgnoreUnknownMessage IgnoreReason = "unknown_message"
	IgnoreStale          IgnoreReason = "stale"
)

// StatusOutcome is the reconciler's verdict on one callback tuple.
type StatusOutcome struct {
	Applied bool
	Reason  IgnoreReason
}

var ErrInvalidRequest = errors.New("invalid message request")

// casRetries bounds the re-read loop when a concurrent callback wins the
// compare-and-set first.
const casRetries = 3

// MessageRepository is the slice of the outbound-message store this service
// needs.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.OutboundMessage) error
	GetByID(ctx context.Context, id string) (*models.OutboundMessage, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*models.OutboundMessage, error)
	List(ctx context.Context, limit, offset int) ([]*models.OutboundMessage, error)
	UpdateStatusFrom(ctx context.Context, providerMessageID string, from, to models.DeliveryStatus, occurredAt int64, errorMessage string) (bool, error)
}

type Service struct {
	repo MessageRepository
}

func NewService(repo MessageRepository) *Service {
	return &Service{repo: repo}
}

// Send records a new outbound message as pending. The send worker picks it up
// and performs the actual provider call.
func (s *Service) Send(ctx context.Context, recipient, body, requestedBy string) (*models.OutboundMessage, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidRequest)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidRequest)
	}

	msg := &models.OutboundMessage{
		Recipient:   recipient,
		MessageType: "text",
		Body:        body,
		Status:      models.DeliveryStatusPending,
		RequestedBy: requestedBy,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	log.Info().
		Str("message_id", msg.ID).
		Str("requested_by", requestedBy).
		Msg("outbound message queued")

	return msg, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.OutboundMessage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.OutboundMessage, error) {
	return s.repo.List(ctx, limit, offset)
}

// ApplyStatus reconciles one delivery-status callback against the stored
// message. Unknown provider message ids are ignored without creating a row;
// backward or same-state transitions are ignored as stale. Forward
// transitions apply via compare-and-set on the expected prior state, with a
// bounded re-read when a concurrent callback wins first.
func (s *Service) ApplyStatus(ctx context.Context, providerMessageID string, status models.DeliveryStatus, occurredAt int64, errorDetail string) (StatusOutcome, error) {
	if occurredAt == 0 {
		occurredAt = time.Now().Unix()
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		msg, err := s.repo.GetByProviderMessageID(ctx, providerMessageID)
		if errors.Is(err, sql.ErrNoRows) {
			log.Info().
				Str("provider_message_id", providerMessageID).
				Str("status", string(status)).
				Msg("status callback for unknown message, ignoring")
			return StatusOutcome{Reason: IgnoreUnknownMessage}, nil
		}
		if err != nil {
			return StatusOutcome{}, err
		}

		if !models.IsForwardTransition(msg.Status, status) {
			log.Info().
				Str("message_id", msg.ID).
				Str("current", string(msg.Status)).
				Str("reported", string(status)).
				Msg("stale status callback, ignoring")
			return StatusOutcome{Reason: IgnoreStale}, nil
		}

		detail := ""
		if status == models.DeliveryStatusFailed {
			detail = errorDetail
		}

		applied, err := s.repo.UpdateStatusFrom(ctx, providerMessageID, msg.Status, status, occurredAt, detail)
		if err != nil {
			return StatusOutcome{}, err
		}
		if applied {
			log.Info().
				Str("message_id", msg.ID).
				Str("from", string(msg.Status)).
				Str("to", string(status)).
				Msg("delivery status applied")
			return StatusOutcome{Applied: true}, nil
		}
		// Lost the compare-and-set to a concurrent callback; re-read and
		// re-evaluate against the fresher state.
	}

	return StatusOutcome{Reason: IgnoreStale}, nil
}
