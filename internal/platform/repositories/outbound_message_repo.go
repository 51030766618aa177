package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"vendara-integration/internal/platform/models"
)

type OutboundMessageRepository struct {
	db *sql.DB
}

func NewOutboundMessageRepository(db *sql.DB) *OutboundMessageRepository {
	return &OutboundMessageRepository{db: db}
}

func (r *OutboundMessageRepository) Create(ctx context.Context, msg *models.OutboundMessage) error {
	if msg.ID == "" {
		msg.ID = "msg_" + uuid.New().String()
	}
	now := time.Now().Unix()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = models.DeliveryStatusPending
	}

	query := `
		INSERT INTO outbound_messages (
			id, recipient, message_type, body, status,
			requested_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.Recipient, msg.MessageType, msg.Body, msg.Status,
		msg.RequestedBy, msg.CreatedAt, msg.UpdatedAt)
	return err
}

func (r *OutboundMessageRepository) GetByID(ctx context.Context, id string) (*models.OutboundMessage, error) {
	query := selectMessageColumns + ` FROM outbound_messages WHERE id = $1`
	return scanMessage(r.db.QueryRowContext(ctx, query, id))
}

func (r *OutboundMessageRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*models.OutboundMessage, error) {
	query := selectMessageColumns + ` FROM outbound_messages WHERE provider_message_id = $1`
	return scanMessage(r.db.QueryRowContext(ctx, query, providerMessageID))
}

func (r *OutboundMessageRepository) List(ctx context.Context, limit, offset int) ([]*models.OutboundMessage, error) {
	query := selectMessageColumns + `
		FROM outbound_messages
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.OutboundMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetPending returns the oldest pending messages for the send worker.
func (r *OutboundMessageRepository) GetPending(ctx context.Context, limit int) ([]*models.OutboundMessage, error) {
	query := selectMessageColumns + `
		FROM outbound_messages
		WHERE status = $1
		ORDER BY created_at ASC, id
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, models.DeliveryStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.OutboundMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ClaimPending takes exclusive ownership of a pending row before the
// provider call. The compare-and-set from pending to sending lets exactly one
// worker win when several poll the same rows; losers see false and skip the
// message.
func (r *OutboundMessageRepository) ClaimPending(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE outbound_messages
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		models.DeliveryStatusSending, time.Now().Unix(), id, models.DeliveryStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseClaim hands a claimed row back to the pending pool after a transient
// send failure so the next tick retries it.
func (r *OutboundMessageRepository) ReleaseClaim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE outbound_messages
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		models.DeliveryStatusPending, time.Now().Unix(), id, models.DeliveryStatusSending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseStaleSending returns rows stuck in sending back to pending. A row
// only stays in sending past the claim window when a worker died between
// claiming and recording the outcome.
func (r *OutboundMessageRepository) ReleaseStaleSending(ctx context.Context, olderThan int64) (int64, error) {
	query := `
		UPDATE outbound_messages
		SET status = $1, updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`
	res, err := r.db.ExecContext(ctx, query,
		models.DeliveryStatusPending, time.Now().Unix(), models.DeliveryStatusSending, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkSent records the provider's acceptance of a send. The status predicate
// makes the update a compare-and-set from the caller's claim; a false return
// means some other writer got there first.
func (r *OutboundMessageRepository) MarkSent(ctx context.Context, id, providerMessageID string) (bool, error) {
	now := time.Now().Unix()
	query := `
		UPDATE outbound_messages
		SET provider_message_id = $1, status = $2, sent_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		providerMessageID, models.DeliveryStatusSent, now, now, id, models.DeliveryStatusSending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkSendFailed records a provider rejection of a claimed send.
func (r *OutboundMessageRepository) MarkSendFailed(ctx context.Context, id, errorMessage string) (bool, error) {
	now := time.Now().Unix()
	query := `
		UPDATE outbound_messages
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		models.DeliveryStatusFailed, errorMessage, now, id, models.DeliveryStatusSending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// UpdateStatusFrom applies a delivery-status transition only if the row is
// still in the expected prior state. Near-simultaneous callbacks for the same
// message serialize on this predicate: the loser sees zero rows affected and
// the reconciler re-reads.
func (r *OutboundMessageRepository) UpdateStatusFrom(ctx context.Context, providerMessageID string, from, to models.DeliveryStatus, occurredAt int64, errorMessage string) (bool, error) {
	query := `
		UPDATE outbound_messages
		SET status = $1, error_message = $2, status_updated_at = $3, updated_at = $4
		WHERE provider_message_id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		to, errorMessage, occurredAt, time.Now().Unix(), providerMessageID, from)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

const selectMessageColumns = `
	SELECT id, provider_message_id, recipient, message_type, body, status,
	       error_message, requested_by, created_at, updated_at, sent_at,
	       status_updated_at`

func scanMessage(s interface {
	Scan(dest ...interface{}) error
}) (*models.OutboundMessage, error) {
	var msg models.OutboundMessage
	var providerMessageID, errorMessage sql.NullString
	var sentAt, statusUpdatedAt sql.NullInt64

	err := s.Scan(
		&msg.ID,
		&providerMessageID,
		&msg.Recipient,
		&msg.MessageType,
		&msg.Body,
		&msg.Status,
		&errorMessage,
		&msg.RequestedBy,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&sentAt,
		&statusUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if providerMessageID.Valid {
		msg.ProviderMessageID = providerMessageID.String
	}
	if errorMessage.Valid {
		msg.ErrorMessage = errorMessage.String
	}
	if sentAt.Valid {
		val := sentAt.Int64
		msg.SentAt = &val
	}
	if statusUpdatedAt.Valid {
		val := statusUpdatedAt.Int64
		msg.StatusUpdatedAt = &val
	}

	return &msg, nil
}
