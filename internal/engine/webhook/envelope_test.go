package webhook

import "testing"

func TestParseEnvelope(t *testing.T) {
	raw := []byte(`{
		"messages":[
			{"id":"wamid.abc","from":"+919990001111","text":{"body":"hi"}},
			{"id":"wamid.def","from":"+919990002222","type":"image","image":{"id":"media1","mime_type":"image/jpeg"}}
		],
		"statuses":[
			{"id":"wamid.out1","status":"delivered","timestamp":"1724900000","recipient_id":"919990001111"}
		]
	}`)

	envelope, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope() error: %v", err)
	}

	if len(envelope.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(envelope.Messages))
	}
	if envelope.Messages[0].Kind() != "text" {
		t.Errorf("expected text kind inferred from content, got %s", envelope.Messages[0].Kind())
	}
	if envelope.Messages[0].Text.Body != "hi" {
		t.Errorf("expected body hi, got %q", envelope.Messages[0].Text.Body)
	}
	if envelope.Messages[1].Kind() != "image" {
		t.Errorf("expected image kind from type field, got %s", envelope.Messages[1].Kind())
	}

	if len(envelope.Statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(envelope.Statuses))
	}
	if envelope.Statuses[0].OccurredAt() != 1724900000 {
		t.Errorf("expected parsed timestamp, got %d", envelope.Statuses[0].OccurredAt())
	}
}

func TestParseEnvelope_Malformed(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestMessage_Kind_Unknown(t *testing.T) {
	m := Message{ID: "wamid.x"}
	if m.Kind() != "unknown" {
		t.Errorf("expected unknown kind, got %s", m.Kind())
	}

	m = Message{ID: "wamid.y", Type: "audio"}
	if m.Kind() != "audio" {
		t.Errorf("expected provider type to be preserved, got %s", m.Kind())
	}
}

func TestStatus_OccurredAt_Invalid(t *testing.T) {
	for _, ts := range []string{"", "not-a-number", "-5"} {
		s := Status{Timestamp: ts}
		if s.OccurredAt() != 0 {
			t.Errorf("expected 0 for timestamp %q", ts)
		}
	}
}

func TestStatus_ErrorDetail(t *testing.T) {
	s := Status{}
	if s.ErrorDetail() != "" {
		t.Error("expected empty detail without errors")
	}

	s = Status{Errors: []StatusError{{Code: 131026, Title: "Message undeliverable"}}}
	if s.ErrorDetail() != "131026: Message undeliverable" {
		t.Errorf("unexpected detail %q", s.ErrorDetail())
	}

	s = Status{Errors: []StatusError{{Title: "first"}, {Title: "second"}}}
	if s.ErrorDetail() != "first (+1 more)" {
		t.Errorf("unexpected detail %q", s.ErrorDetail())
	}
}
