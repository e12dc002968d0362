package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/middleware"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/state"
)

// SessionTracker starts tracking a session once it logs in and forgets it
// after logout.
type SessionTracker interface {
	Adopt(s *state.Store)
	Remove(token string)
}

type AuthHandler struct {
	repo     state.Repository
	sessions SessionTracker
	cookie   middleware.CookieOptions
	ttl      time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

func NewAuthHandler(repo state.Repository, sessions SessionTracker, cookie middleware.CookieOptions, ttl time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		repo:     repo,
		sessions: sessions,
		cookie:   cookie,
		ttl:      ttl,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// stateResponse is the full session view returned by state-changing auth
// calls and GET /api/state.
type stateResponse struct {
	model.HouseholdState
	Notifications []feed.View `json:"notifications"`
	UnreadCount   int         `json:"unread_count"`
}

// stateView hides expired notifications, the same as the notification list.
func (h *AuthHandler) stateView(s model.HouseholdState) stateResponse {
	active := feed.ListActive(s.Notifications, h.clock())
	return stateResponse{
		HouseholdState: s,
		Notifications:  feed.Views(active),
		UnreadCount:    feed.UnreadCount(active),
	}
}

// startSession tracks s and hands out its cookie. Remembered sessions get a
// persistent cookie, the rest last as long as the browser.
func (h *AuthHandler) startSession(w http.ResponseWriter, s *state.Store, remember bool) {
	h.sessions.Adopt(s)
	maxAge := 0
	if remember {
		maxAge = int(h.ttl.Seconds())
	}
	middleware.SetSessionCookie(w, s.Token(), maxAge, h.cookie)
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req state.Registration
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.HouseholdName) == "" || req.Secret == "" || len(req.Members) == 0 {
		writeError(w, http.StatusBadRequest, "household_name, secret and at least one member are required")
		return
	}
	s := storeOf(r)
	res, err := s.Register(req)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	h.startSession(w, s, req.RememberMe)
	writeJSON(w, http.StatusCreated, h.stateView(res.State))
}

type loginRequest struct {
	HouseholdName string `json:"household_name"`
	Secret        string `json:"secret"`
	MemberID      string `json:"member_id"`
	RememberMe    bool   `json:"remember_me"`
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	s := storeOf(r)
	loaded, err := s.Login(r.Context(), h.repo, strings.TrimSpace(req.HouseholdName), req.Secret, req.MemberID, req.RememberMe)
	if errors.Is(err, state.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid household name or secret")
		return
	}
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	h.startSession(w, s, req.RememberMe)
	writeJSON(w, http.StatusOK, h.stateView(loaded))
}

// Logout handles POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := storeOf(r)
	s.Logout()
	h.sessions.Remove(s.Token())
	middleware.SetSessionCookie(w, "", -1, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/state
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stateView(storeOf(r).Snapshot()))
}

type switchRequest struct {
	MemberID string `json:"member_id"`
}

// Switch handles POST /api/session/switch
func (h *AuthHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !decode(w, r, &req) {
		return
	}
	res, ok := apply(w, r, h.logger, state.SwitchUser{MemberID: req.MemberID})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.stateView(res.State))
}
