package push

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key is an uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestPayloadFor(t *testing.T) {
	n := model.Notification{ID: "n1", Type: model.NotifWalkCompleted, Title: "Walk Completed", Message: "Alice walked Rex"}
	p := PayloadFor(n)
	if p.Title != "Walk Completed" || p.Body != "Alice walked Rex" {
		t.Errorf("payload = %+v", p)
	}
	if p.URL != "/statistics" {
		t.Errorf("url = %q, want /statistics", p.URL)
	}
	if p.Tag != "n1" {
		t.Errorf("tag = %q, want n1", p.Tag)
	}
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	expired map[string]bool
	done    chan struct{}
}

func (f *fakeSender) Send(sub model.PushSubscription, _ Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.MemberID)
	if f.done != nil {
		defer func() { f.done <- struct{}{} }()
	}
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	return nil
}

type fakeSubs struct {
	mu      sync.Mutex
	subs    []model.PushSubscription
	deleted []string
}

func (f *fakeSubs) ListByHousehold(householdID string) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PushSubscription
	for _, s := range f.subs {
		if s.HouseholdID == householdID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) ListByMember(householdID, memberID string) ([]model.PushSubscription, error) {
	all, _ := f.ListByHousehold(householdID)
	var out []model.PushSubscription
	for _, s := range all {
		if s.MemberID == memberID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByEndpoint(endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func testSubs() *fakeSubs {
	return &fakeSubs{subs: []model.PushSubscription{
		{ID: "s1", HouseholdID: "h1", MemberID: "alice", Endpoint: "https://push/a"},
		{ID: "s2", HouseholdID: "h1", MemberID: "bob", Endpoint: "https://push/b"},
		{ID: "s3", HouseholdID: "h2", MemberID: "zed", Endpoint: "https://push/z"},
	}}
}

func TestDeliverSkipsCreator(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, testSubs(), slog.Default())

	n.deliver("h1", model.Notification{ID: "n1", Type: model.NotifSwapRequest, CreatedBy: "bob"})

	if len(sender.sent) != 1 || sender.sent[0] != "alice" {
		t.Errorf("sent = %v, want [alice]", sender.sent)
	}
}

func TestDeliverToRecipient(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, testSubs(), slog.Default())

	n.deliver("h1", model.Notification{ID: "n1", Type: model.NotifSwapAccepted, CreatedBy: "alice", RecipientID: "bob"})

	if len(sender.sent) != 1 || sender.sent[0] != "bob" {
		t.Errorf("sent = %v, want [bob]", sender.sent)
	}
}

func TestDeliverPrunesExpired(t *testing.T) {
	sender := &fakeSender{expired: map[string]bool{"https://push/a": true}}
	subs := testSubs()
	n := NewNotifier(sender, subs, slog.Default())

	n.deliver("h1", model.Notification{ID: "n1", Type: model.NotifSystem})

	if len(sender.sent) != 2 {
		t.Errorf("sent = %v, want 2 sends", sender.sent)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "https://push/a" {
		t.Errorf("deleted = %v", subs.deleted)
	}
}

func TestNotifierStartStop(t *testing.T) {
	sender := &fakeSender{done: make(chan struct{}, 4)}
	n := NewNotifier(sender, testSubs(), slog.Default())
	n.Start(context.Background())
	defer n.Stop()

	n.Notify("h2", model.Notification{ID: "n1", Type: model.NotifSystem})

	select {
	case <-sender.done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
	}
}

func TestStopWithoutStart(t *testing.T) {
	n := NewNotifier(&fakeSender{}, testSubs(), slog.Default())
	// Should not block or panic
	n.Stop()
}
