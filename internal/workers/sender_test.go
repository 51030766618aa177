package workers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"vendara-integration/internal/platform/models"
	"vendara-integration/internal/platform/repositories"
	"vendara-integration/internal/whatsapp"
)

type fakeStore struct {
	mu         sync.Mutex
	pending    []*models.OutboundMessage
	claimed    map[string]bool
	released   map[string]int
	sent       map[string]string
	failed     map[string]string
	pendingErr error
}

func newFakeStore(pending ...*models.OutboundMessage) *fakeStore {
	return &fakeStore{
		pending:  pending,
		claimed:  map[string]bool{},
		released: map[string]int{},
		sent:     map[string]string{},
		failed:   map[string]string{},
	}
}

func (s *fakeStore) GetPending(ctx context.Context, limit int) ([]*models.OutboundMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) ClaimPending(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[id] {
		return false, nil
	}
	s.claimed[id] = true
	return true, nil
}

func (s *fakeStore) ReleaseClaim(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claimed[id] {
		return false, nil
	}
	delete(s.claimed, id)
	s.released[id]++
	return true, nil
}

func (s *fakeStore) ReleaseStaleSending(ctx context.Context, olderThan int64) (int64, error) {
	return 0, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id, providerMessageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = providerMessageID
	return true, nil
}

func (s *fakeStore) MarkSendFailed(ctx context.Context, id, errorMessage string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errorMessage
	return true, nil
}

type fakeSender struct {
	mu        sync.Mutex
	responses map[string]string // recipient -> provider id
	errs      map[string]error  // recipient -> error
	calls     int
}

func (f *fakeSender) SendText(ctx context.Context, recipient, body string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[recipient]; ok {
		return "", err
	}
	return f.responses[recipient], nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSendWorker_ProcessBatch(t *testing.T) {
	store := newFakeStore(
		&models.OutboundMessage{ID: "msg_1", Recipient: "+1111", Body: "a", Status: models.DeliveryStatusPending},
		&models.OutboundMessage{ID: "msg_2", Recipient: "+2222", Body: "b", Status: models.DeliveryStatusPending},
	)
	sender := &fakeSender{responses: map[string]string{
		"+1111": "wamid.a",
		"+2222": "wamid.b",
	}}

	worker := NewSendWorker(SendWorkerConfig{Store: store, Sender: sender, BatchSize: 10})
	if err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}

	if store.sent["msg_1"] != "wamid.a" || store.sent["msg_2"] != "wamid.b" {
		t.Errorf("expected both messages marked sent, got %v", store.sent)
	}
	if len(store.failed) != 0 {
		t.Errorf("expected no failures, got %v", store.failed)
	}
}

func TestSendWorker_DefinitiveRejectionMarksFailed(t *testing.T) {
	store := newFakeStore(
		&models.OutboundMessage{ID: "msg_1", Recipient: "+1111", Body: "a", Status: models.DeliveryStatusPending},
	)
	sender := &fakeSender{errs: map[string]error{
		"+1111": &whatsapp.SendError{StatusCode: 400, Detail: "recipient not on whatsapp"},
	}}

	worker := NewSendWorker(SendWorkerConfig{Store: store, Sender: sender})
	if err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}

	if store.failed["msg_1"] != "recipient not on whatsapp" {
		t.Errorf("expected definitive rejection recorded, got %v", store.failed)
	}
	if len(store.sent) != 0 {
		t.Errorf("expected nothing sent, got %v", store.sent)
	}
}

func TestSendWorker_TransientErrorLeavesPending(t *testing.T) {
	store := newFakeStore(
		&models.OutboundMessage{ID: "msg_1", Recipient: "+1111", Body: "a", Status: models.DeliveryStatusPending},
	)
	sender := &fakeSender{errs: map[string]error{
		"+1111": errors.New("connection refused"),
	}}

	worker := NewSendWorker(SendWorkerConfig{Store: store, Sender: sender})
	if err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}

	if len(store.sent) != 0 || len(store.failed) != 0 {
		t.Error("transient failure must leave the message pending")
	}
	if store.released["msg_1"] != 1 {
		t.Error("transient failure must release the claim for the next tick")
	}
}

func TestSendWorker_SkipsMessagesClaimedElsewhere(t *testing.T) {
	store := newFakeStore(
		&models.OutboundMessage{ID: "msg_1", Recipient: "+1111", Body: "a", Status: models.DeliveryStatusPending},
	)
	store.claimed["msg_1"] = true

	sender := &fakeSender{responses: map[string]string{"+1111": "wamid.a"}}
	worker := NewSendWorker(SendWorkerConfig{Store: store, Sender: sender})
	if err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}

	if sender.callCount() != 0 {
		t.Error("a message claimed by another worker must not be sent")
	}
	if len(store.sent) != 0 {
		t.Errorf("expected nothing marked sent, got %v", store.sent)
	}
}

// Two workers polling the same store must produce exactly one provider call
// per message; the claim compare-and-set decides the winner.
func TestSendWorker_ConcurrentPollersSendOnce(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	schema := `
	CREATE TABLE outbound_messages (
		id TEXT PRIMARY KEY,
		provider_message_id TEXT UNIQUE,
		recipient TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		body TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		requested_by TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		sent_at BIGINT,
		status_updated_at BIGINT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	repo := repositories.NewOutboundMessageRepository(db)
	msg := &models.OutboundMessage{Recipient: "+1111", MessageType: "text", Body: "once"}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	sender := &fakeSender{responses: map[string]string{"+1111": "wamid.once"}}
	workers := []*SendWorker{
		NewSendWorker(SendWorkerConfig{Store: repo, Sender: sender, BatchSize: 10}),
		NewSendWorker(SendWorkerConfig{Store: repo, Sender: sender, BatchSize: 10}),
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *SendWorker) {
			defer wg.Done()
			if err := w.ProcessBatch(context.Background()); err != nil {
				t.Errorf("ProcessBatch() error: %v", err)
			}
		}(w)
	}
	wg.Wait()

	if got := sender.callCount(); got != 1 {
		t.Fatalf("expected exactly one provider call, got %d", got)
	}
	stored, err := repo.GetByID(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if stored.Status != models.DeliveryStatusSent {
		t.Errorf("expected sent, got %s", stored.Status)
	}
}

func TestSendWorker_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.pendingErr = errors.New("db down")

	worker := NewSendWorker(SendWorkerConfig{Store: store, Sender: &fakeSender{}})
	if err := worker.ProcessBatch(context.Background()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
