package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
)

// Sender delivers one payload to one device.
type Sender interface {
	Send(sub model.PushSubscription, payload Payload) error
}

// SubscriptionStore is the subset of the push subscription store the
// notifier reads and prunes.
type SubscriptionStore interface {
	ListByHousehold(householdID string) ([]model.PushSubscription, error)
	ListByMember(householdID, memberID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

type delivery struct {
	householdID string
	n           model.Notification
}

// Notifier fans new notifications out to the household's registered
// devices on a background goroutine.
type Notifier struct {
	mu     sync.RWMutex
	sender Sender
	subs   SubscriptionStore
	logger *slog.Logger
	queue  chan delivery
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		subs:   subs,
		logger: logger,
		queue:  make(chan delivery, 64),
	}
}

// Notify queues a notification for delivery. It never blocks; when the
// queue is full the push is dropped.
func (p *Notifier) Notify(householdID string, n model.Notification) {
	select {
	case p.queue <- delivery{householdID: householdID, n: n}:
	default:
		p.logger.Warn("push queue full, dropping", "household_id", householdID, "notification_id", n.ID)
	}
}

// Start begins the delivery loop.
func (p *Notifier) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-p.queue:
				p.deliver(d.householdID, d.n)
			}
		}
	}()
}

// Stop gracefully stops the delivery loop.
func (p *Notifier) Stop() {
	p.mu.RLock()
	cancel := p.cancel
	done := p.done
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// PayloadFor builds the push payload for a notification.
func PayloadFor(n model.Notification) Payload {
	return Payload{
		Title: n.Title,
		Body:  n.Message,
		URL:   feed.MetaFor(n.Type).Route,
		Tag:   n.ID,
	}
}

func (p *Notifier) deliver(householdID string, n model.Notification) {
	var (
		subs []model.PushSubscription
		err  error
	)
	if n.RecipientID != "" {
		subs, err = p.subs.ListByMember(householdID, n.RecipientID)
	} else {
		subs, err = p.subs.ListByHousehold(householdID)
	}
	if err != nil {
		p.logger.Error("list push subscriptions", "household_id", householdID, "error", err)
		return
	}

	payload := PayloadFor(n)
	for _, sub := range subs {
		if sub.MemberID == n.CreatedBy && n.RecipientID == "" {
			continue
		}
		err := p.sender.Send(sub, payload)
		if errors.Is(err, ErrExpired) {
			if err := p.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				p.logger.Error("delete expired subscription", "endpoint", sub.Endpoint, "error", err)
			}
			continue
		}
		if err != nil {
			p.logger.Warn("push send failed", "household_id", householdID, "member_id", sub.MemberID, "error", err)
		}
	}
}
