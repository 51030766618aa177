package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"vendara-integration/internal/platform/config"
	"vendara-integration/internal/platform/models"
)

// Publisher hands verified inbound messages to the rest of the platform over
// NATS. Downstream services (order, notification) subscribe to the subject;
// this service guarantees at most one publish per logical inbound message.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

func Connect(cfg config.NATSConfig) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("vendara-integration"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "integration"
	}

	return &Publisher{
		conn:    conn,
		subject: prefix + ".whatsapp.inbound",
	}, nil
}

func (p *Publisher) PublishInbound(event *models.InboundEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal inbound event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish inbound event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}
