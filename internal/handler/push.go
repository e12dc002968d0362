package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/session"
)

// SubscriptionStore persists device registrations.
type SubscriptionStore interface {
	CreateSubscription(householdID, memberID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error)
	ListByMember(householdID, memberID string) ([]model.PushSubscription, error)
	DeleteSubscription(id, householdID string) error
}

type PushHandler struct {
	subs      SubscriptionStore
	publicKey string
	logger    *slog.Logger
}

// NewPushHandler creates the push endpoints. An empty publicKey means push
// is not configured.
func NewPushHandler(subs SubscriptionStore, publicKey string, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, publicKey: publicKey, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	ctx := r.Context()
	sub, err := h.subs.CreateSubscription(session.HouseholdID(ctx), session.CurrentUser(ctx), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subs, err := h.subs.ListByMember(session.HouseholdID(ctx), session.CurrentUser(ctx))
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.subs.DeleteSubscription(r.PathValue("id"), session.HouseholdID(r.Context())); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}
