package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"vendara-integration/internal/platform/models"
)

type InboundEventRepository struct {
	db *sql.DB
}

func NewInboundEventRepository(db *sql.DB) *InboundEventRepository {
	return &InboundEventRepository{db: db}
}

// InsertNew records a webhook message the first time its provider message id
// is seen. The unique constraint on provider_message_id makes concurrent
// duplicate deliveries race safely: exactly one insert wins, the rest see
// zero rows affected and are reported as duplicates, not errors.
func (r *InboundEventRepository) InsertNew(ctx context.Context, event *models.InboundEvent) (bool, error) {
	if event.ID == "" {
		event.ID = "evt_" + uuid.New().String()
	}
	if event.Direction == "" {
		event.Direction = "inbound"
	}
	if event.ProcessingStatus == "" {
		event.ProcessingStatus = models.ProcessingStatusReceived
	}
	if event.ReceivedAt == 0 {
		event.ReceivedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO inbound_events (
			id, provider_message_id, direction, sender, message_type,
			payload, payload_digest, processing_status, error_message, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_message_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.ProviderMessageID,
		event.Direction,
		event.From,
		event.MessageType,
		string(event.Payload),
		event.PayloadDigest,
		event.ProcessingStatus,
		event.ErrorMessage,
		event.ReceivedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *InboundEventRepository) GetByID(ctx context.Context, id string) (*models.InboundEvent, error) {
	query := selectEventColumns + ` FROM inbound_events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *InboundEventRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*models.InboundEvent, error) {
	query := selectEventColumns + ` FROM inbound_events WHERE provider_message_id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, providerMessageID))
}

func (r *InboundEventRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `
		UPDATE inbound_events
		SET processing_status = $1, processed_at = $2
		WHERE id = $3 AND processing_status = $4
	`
	_, err := r.db.ExecContext(ctx, query,
		models.ProcessingStatusProcessed, time.Now().Unix(), id, models.ProcessingStatusReceived)
	return err
}

func (r *InboundEventRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `
		UPDATE inbound_events
		SET processing_status = $1, error_message = $2, processed_at = $3
		WHERE id = $4 AND processing_status = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		models.ProcessingStatusFailed, errorMessage, time.Now().Unix(), id, models.ProcessingStatusReceived)
	return err
}

func (r *InboundEventRepository) List(ctx context.Context, limit, offset int) ([]*models.InboundEvent, error) {
	query := selectEventColumns + `
		FROM inbound_events
		ORDER BY received_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.InboundEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

const selectEventColumns = `
	SELECT id, provider_message_id, direction, sender, message_type,
	       payload, payload_digest, processing_status, error_message,
	       received_at, processed_at`

func scanEvent(s interface {
	Scan(dest ...interface{}) error
}) (*models.InboundEvent, error) {
	var event models.InboundEvent
	var payload string
	var errorMessage sql.NullString
	var processedAt sql.NullInt64

	err := s.Scan(
		&event.ID,
		&event.ProviderMessageID,
		&event.Direction,
		&event.From,
		&event.MessageType,
		&payload,
		&event.PayloadDigest,
		&event.ProcessingStatus,
		&errorMessage,
		&event.ReceivedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Payload = []byte(payload)
	if errorMessage.Valid {
		event.ErrorMessage = errorMessage.String
	}
	if processedAt.Valid {
		val := processedAt.Int64
		event.ProcessedAt = &val
	}

	return &event, nil
}
