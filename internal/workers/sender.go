package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"vendara-integration/internal/pkg/metrics"
	"vendara-integration/internal/platform/models"
	"vendara-integration/internal/whatsapp"
)

// Sender performs the actual provider call for one message.
type Sender interface {
	SendText(ctx context.Context, recipient, body string) (string, error)
}

// MessageStore is the slice of the outbound-message store the worker needs.
type MessageStore interface {
	GetPending(ctx context.Context, limit int) ([]*models.OutboundMessage, error)
	ClaimPending(ctx context.Context, id string) (bool, error)
	ReleaseClaim(ctx context.Context, id string) (bool, error)
	ReleaseStaleSending(ctx context.Context, olderThan int64) (int64, error)
	MarkSent(ctx context.Context, id, providerMessageID string) (bool, error)
	MarkSendFailed(ctx context.Context, id, errorMessage string) (bool, error)
}

// staleClaimAge is how long a row may sit in sending before it is treated as
// abandoned by a dead worker and returned to the pending pool.
const staleClaimAge = 5 * time.Minute

// SendWorker polls pending outbound messages and submits them to the
// provider. Each message is claimed with a compare-and-set before the
// provider call, so concurrent workers never send the same message twice.
// Definitive rejections mark the message failed; transport and 5xx failures
// release the claim for the next tick.
type SendWorker struct {
	store        MessageStore
	sender       Sender
	pollInterval time.Duration
	batchSize    int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

type SendWorkerConfig struct {
	Store        MessageStore
	Sender       Sender
	PollInterval time.Duration
	BatchSize    int
}

func NewSendWorker(cfg SendWorkerConfig) *SendWorker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	return &SendWorker{
		store:        cfg.Store,
		sender:       cfg.Sender,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

func (w *SendWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
}

func (w *SendWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

func (w *SendWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.ProcessBatch(ctx); err != nil {
				log.Error().Err(err).Msg("send worker batch failed")
			}
		}
	}
}

// ProcessBatch drains one batch of pending messages.
func (w *SendWorker) ProcessBatch(ctx context.Context) error {
	released, err := w.store.ReleaseStaleSending(ctx, time.Now().Add(-staleClaimAge).Unix())
	if err != nil {
		return err
	}
	if released > 0 {
		log.Warn().Int64("count", released).Msg("requeued messages abandoned mid-send")
	}

	pending, err := w.store.GetPending(ctx, w.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range pending {
		claimed, err := w.store.ClaimPending(ctx, msg.ID)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to claim message")
			continue
		}
		if !claimed {
			// Another worker got the row between our read and the claim.
			log.Debug().Str("message_id", msg.ID).Msg("message claimed elsewhere, skipping")
			continue
		}

		providerMessageID, err := w.sender.SendText(ctx, msg.Recipient, msg.Body)
		if err != nil {
			var sendErr *whatsapp.SendError
			if errors.As(err, &sendErr) {
				log.Warn().
					Str("message_id", msg.ID).
					Str("detail", sendErr.Detail).
					Msg("provider rejected outbound message")
				if _, err := w.store.MarkSendFailed(ctx, msg.ID, sendErr.Detail); err != nil {
					log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to mark message failed")
				}
				continue
			}
			// Transient: release the claim so the next tick retries.
			log.Error().Err(err).Str("message_id", msg.ID).Msg("send attempt failed, will retry")
			if _, err := w.store.ReleaseClaim(ctx, msg.ID); err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to release claim")
			}
			continue
		}

		applied, err := w.store.MarkSent(ctx, msg.ID, providerMessageID)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to mark message sent")
			continue
		}
		if !applied {
			// The claim expired mid-send and another writer took the row.
			log.Debug().Str("message_id", msg.ID).Msg("message advanced before send was recorded")
			continue
		}

		metrics.OutboundSentTotal.Inc()
		log.Info().
			Str("message_id", msg.ID).
			Str("provider_message_id", providerMessageID).
			Msg("outbound message sent")
	}

	return nil
}
