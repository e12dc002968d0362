// Package notify delivers newly created notifications beyond the session
// that produced them: other sessions, connected browsers, devices and
// other instances.
package notify

import (
	"log/slog"
	"sync"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/websocket"
)

// Sink receives a notification produced by session origin.
type Sink interface {
	Deliver(origin, householdID string, n model.Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(origin, householdID string, n model.Notification)

func (f SinkFunc) Deliver(origin, householdID string, n model.Notification) {
	f(origin, householdID, n)
}

// Fanout is the state store's Publisher. Local sinks serve this process;
// remote sinks (devices, other instances) only see notifications created
// here, never ones relayed from another instance.
type Fanout struct {
	mu     sync.RWMutex
	local  []Sink
	remote []Sink
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger) *Fanout {
	return &Fanout{logger: logger.With("component", "notify")}
}

func (f *Fanout) AddLocal(s Sink) {
	f.mu.Lock()
	f.local = append(f.local, s)
	f.mu.Unlock()
}

func (f *Fanout) AddRemote(s Sink) {
	f.mu.Lock()
	f.remote = append(f.remote, s)
	f.mu.Unlock()
}

// Publish delivers a notification created in this process to every sink.
func (f *Fanout) Publish(origin, householdID string, n model.Notification) {
	f.mu.RLock()
	sinks := append(append([]Sink(nil), f.local...), f.remote...)
	f.mu.RUnlock()

	f.logger.Debug("publish notification", "household_id", householdID, "type", n.Type, "notification_id", n.ID)
	for _, s := range sinks {
		s.Deliver(origin, householdID, n)
	}
}

// DeliverLocal hands a notification relayed from elsewhere to local sinks only.
func (f *Fanout) DeliverLocal(origin, householdID string, n model.Notification) {
	f.mu.RLock()
	sinks := append([]Sink(nil), f.local...)
	f.mu.RUnlock()

	for _, s := range sinks {
		s.Deliver(origin, householdID, n)
	}
}

// HubSink broadcasts notifications to the household's websocket clients.
func HubSink(hub *websocket.Hub) Sink {
	return SinkFunc(func(_, householdID string, n model.Notification) {
		hub.Broadcast(householdID, websocket.NewMessage("notification", "created", n.ID, feed.ViewOf(n)))
	})
}
