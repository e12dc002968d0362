package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/pawtrack/internal/model"
)

const (
	subjectPrefix = "pawtrack.households."
	subjectSuffix = ".notifications"
	allSubjects   = subjectPrefix + "*" + subjectSuffix
)

// Subject is the NATS subject notifications of one household travel on.
func Subject(householdID string) string {
	return subjectPrefix + householdID + subjectSuffix
}

// Envelope is the wire form of a relayed notification.
type Envelope struct {
	Instance     string             `json:"instance"`
	Origin       string             `json:"origin"`
	HouseholdID  string             `json:"household_id"`
	Notification model.Notification `json:"notification"`
}

// Conn is the part of *nats.Conn the bridge uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Bridge relays notifications between instances sharing a database.
// Messages published by this instance are ignored on receipt.
type Bridge struct {
	conn      Conn
	instance  string
	local     Sink
	logger    *slog.Logger
	sub       *nats.Subscription
	closeConn func()
}

// Connect dials url and returns a bridge delivering relayed notifications
// to local.
func Connect(url string, local Sink, logger *slog.Logger) (*Bridge, error) {
	nc, err := nats.Connect(url, nats.Name("pawtrack"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b := NewBridge(nc, local, logger)
	b.closeConn = nc.Close
	b.logger.Info("NATS bridge connected", "url", url, "instance", b.instance)
	return b, nil
}

func NewBridge(conn Conn, local Sink, logger *slog.Logger) *Bridge {
	return &Bridge{
		conn:     conn,
		instance: uuid.NewString(),
		local:    local,
		logger:   logger.With("component", "nats"),
	}
}

// Start subscribes to every household's notification subject.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(allSubjects, b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", allSubjects, err)
	}
	b.sub = sub
	return nil
}

// Deliver publishes a locally created notification for other instances.
func (b *Bridge) Deliver(origin, householdID string, n model.Notification) {
	data, err := json.Marshal(Envelope{Instance: b.instance, Origin: origin, HouseholdID: householdID, Notification: n})
	if err != nil {
		b.logger.Error("marshal envelope", "error", err)
		return
	}
	if err := b.conn.Publish(Subject(householdID), data); err != nil {
		b.logger.Warn("publish notification", "household_id", householdID, "error", err)
	}
}

func (b *Bridge) handle(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn("discarding malformed envelope", "subject", msg.Subject, "error", err)
		return
	}
	if env.Instance == b.instance {
		return
	}
	householdID := strings.TrimSuffix(strings.TrimPrefix(msg.Subject, subjectPrefix), subjectSuffix)
	if env.HouseholdID != householdID {
		b.logger.Warn("envelope household mismatch", "subject", msg.Subject, "household_id", env.HouseholdID)
		return
	}
	b.local.Deliver(env.Origin, env.HouseholdID, env.Notification)
}

// Close unsubscribes and closes the connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.logger.Debug("unsubscribe", "error", err)
		}
	}
	if b.closeConn != nil {
		b.closeConn()
	}
}
