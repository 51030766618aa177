package models

import "encoding/json"

type ProcessingStatus string

const (
	ProcessingStatusReceived  ProcessingStatus = "received"
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSending   DeliveryStatus = "sending"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// rank orders delivery statuses along the allowed direction. Sending is the
// worker's claim on a pending row; it holds the row against other workers
// until the provider call resolves. Delivered and failed share the terminal
// rank so neither can overwrite the other.
var deliveryStatusRank = map[DeliveryStatus]int{
	DeliveryStatusPending:   0,
	DeliveryStatusSending:   1,
	DeliveryStatusSent:      2,
	DeliveryStatusDelivered: 3,
	DeliveryStatusFailed:    3,
}

// IsForwardTransition reports whether moving from to next advances the
// delivery state machine. Same-rank and backward moves are stale.
func IsForwardTransition(from, next DeliveryStatus) bool {
	fromRank, ok := deliveryStatusRank[from]
	if !ok {
		return false
	}
	nextRank, ok := deliveryStatusRank[next]
	if !ok {
		return false
	}
	return nextRank > fromRank
}

// ParseDeliveryStatus maps a provider callback status string to a known
// delivery status. Unknown strings return false.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch DeliveryStatus(s) {
	case DeliveryStatusSent, DeliveryStatusDelivered, DeliveryStatusFailed:
		return DeliveryStatus(s), true
	}
	return "", false
}

// InboundEvent is one received webhook message, keyed by the provider's own
// message id. Rows are never deleted; they double as the ingestion audit log.
type InboundEvent struct {
	ID                string           `json:"id"`
	ProviderMessageID string           `json:"provider_message_id"`
	Direction         string           `json:"direction"`
	From              string           `json:"from"`
	MessageType       string           `json:"message_type"`
	Payload           json.RawMessage  `json:"payload"`
	PayloadDigest     string           `json:"payload_digest"`
	ProcessingStatus  ProcessingStatus `json:"processing_status"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	ReceivedAt        int64            `json:"received_at"`
	ProcessedAt       *int64           `json:"processed_at,omitempty"`
}

// OutboundMessage is a message this service sent (or is about to send) to the
// provider on behalf of another platform service.
type OutboundMessage struct {
	ID                string         `json:"id"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	Recipient         string         `json:"recipient"`
	MessageType       string         `json:"message_type"`
	Body              string         `json:"body"`
	Status            DeliveryStatus `json:"status"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	RequestedBy       string         `json:"requested_by"`
	CreatedAt         int64          `json:"created_at"`
	UpdatedAt         int64          `json:"updated_at"`
	SentAt            *int64         `json:"sent_at,omitempty"`
	StatusUpdatedAt   *int64         `json:"status_updated_at,omitempty"`
}
