package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the provider's webhook body. One delivery may carry inbound
// messages, delivery-status callbacks, or both.
type Envelope struct {
	Messages []Message `json:"messages"`
	Statuses []Status  `json:"statuses"`
}

// Message is one inbound customer message. The content members form a tagged
// union; exactly one is set for kinds this service understands.
type Message struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	Timestamp string        `json:"timestamp,omitempty"`
	Type      string        `json:"type,omitempty"`
	Text      *TextContent  `json:"text,omitempty"`
	Image     *MediaContent `json:"image,omitempty"`
	Document  *MediaContent `json:"document,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaContent struct {
	ID       string `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Status is one delivery-status callback tuple for a message this service
// previously sent.
type Status struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp,omitempty"`
	RecipientID string        `json:"recipient_id,omitempty"`
	Errors      []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Code  int    `json:"code,omitempty"`
	Title string `json:"title,omitempty"`
}

// ParseEnvelope decodes the verified raw payload. The bytes must be exactly
// what the gate returned; re-serialization would break the signature contract.
func ParseEnvelope(rawBody []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse webhook envelope: %w", err)
	}
	return &envelope, nil
}

// Kind resolves the message type. The provider's type field wins; without it
// the populated union member decides. Unknown kinds are preserved as-is so
// they can be recorded without being dispatched.
func (m Message) Kind() string {
	if m.Type != "" {
		return m.Type
	}
	switch {
	case m.Text != nil:
		return "text"
	case m.Image != nil:
		return "image"
	case m.Document != nil:
		return "document"
	}
	return "unknown"
}

// OccurredAt parses the provider's unix-seconds timestamp string. Zero means
// the callback carried no usable timestamp.
func (s Status) OccurredAt() int64 {
	if s.Timestamp == "" {
		return 0
	}
	ts, err := strconv.ParseInt(s.Timestamp, 10, 64)
	if err != nil || ts < 0 {
		return 0
	}
	return ts
}

// ErrorDetail flattens the callback's error list into one stored string.
func (s Status) ErrorDetail() string {
	if len(s.Errors) == 0 {
		return ""
	}
	detail := s.Errors[0].Title
	if s.Errors[0].Code != 0 {
		detail = fmt.Sprintf("%d: %s", s.Errors[0].Code, s.Errors[0].Title)
	}
	if len(s.Errors) > 1 {
		detail = fmt.Sprintf("%s (+%d more)", detail, len(s.Errors)-1)
	}
	return detail
}
