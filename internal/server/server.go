package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/pawtrack/internal/handler"
	"github.com/dukerupert/pawtrack/internal/metrics"
	"github.com/dukerupert/pawtrack/internal/middleware"
	"github.com/dukerupert/pawtrack/internal/session"
	"github.com/dukerupert/pawtrack/internal/store"
	ws "github.com/dukerupert/pawtrack/internal/websocket"
)

type Options struct {
	Sessions       *session.Registry
	Repo           *store.Repository
	Hub            *ws.Hub
	Metrics        *prometheus.Registry
	VAPIDPublicKey string
	SessionTTL     time.Duration
	SecureCookies  bool
	LoginRateLimit int
	Logger         *slog.Logger
}

type Server struct {
	sessions       *session.Registry
	repo           *store.Repository
	hub            *ws.Hub
	metrics        *prometheus.Registry
	loginRateLimit int
	authH          *handler.AuthHandler
	walkH          *handler.WalkHandler
	notificationH  *handler.NotificationHandler
	memberH        *handler.MemberHandler
	dogH           *handler.DogHandler
	pushH          *handler.PushHandler
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	cookie := middleware.CookieOptions{Secure: opts.SecureCookies}
	limit := opts.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	return &Server{
		sessions:       opts.Sessions,
		repo:           opts.Repo,
		hub:            opts.Hub,
		metrics:        opts.Metrics,
		loginRateLimit: limit,
		authH:          handler.NewAuthHandler(opts.Repo, opts.Sessions, cookie, opts.SessionTTL, logger.With("component", "auth")),
		walkH:          handler.NewWalkHandler(logger.With("component", "walk")),
		notificationH:  handler.NewNotificationHandler(logger.With("component", "notification")),
		memberH:        handler.NewMemberHandler(logger.With("component", "member")),
		dogH:           handler.NewDogHandler(logger.With("component", "dog")),
		pushH:          handler.NewPushHandler(opts.Repo.Push, opts.VAPIDPublicKey, logger.With("component", "push_handler")),
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.metrics != nil {
		outerMux.Handle("GET /metrics", metrics.HTTPHandler(s.metrics))
	}

	// Routes that work before a household is loaded
	sessionMux := http.NewServeMux()
	sessionMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	sessionMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	sessionMux.HandleFunc("POST /api/logout", s.authH.Logout)
	sessionMux.HandleFunc("GET /api/state", s.authH.State)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	sessionMux.Handle("/", middleware.RequireHousehold(protectedMux))

	outerMux.Handle("/", middleware.Sessions(s.sessions)(sessionMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.loginRateLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session/switch", s.authH.Switch)

	// Members and achievements
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("POST /api/members/{id}/achievements", s.memberH.Grant)
	mux.HandleFunc("GET /api/achievements", s.memberH.Achievements)

	// Dog profile
	mux.HandleFunc("GET /api/dog", s.dogH.Get)
	mux.HandleFunc("PUT /api/dog", s.dogH.Update)

	// Walks
	mux.HandleFunc("GET /api/walks", s.walkH.List)
	mux.HandleFunc("POST /api/walks", s.walkH.Create)
	mux.HandleFunc("GET /api/walks/today", s.walkH.Today)
	mux.HandleFunc("GET /api/walks/current", s.walkH.Current)
	mux.HandleFunc("POST /api/walks/current/end", s.walkH.End)
	mux.HandleFunc("PUT /api/walks/{id}", s.walkH.Update)
	mux.HandleFunc("DELETE /api/walks/{id}", s.walkH.Delete)
	mux.HandleFunc("POST /api/walks/{id}/start", s.walkH.Start)
	mux.HandleFunc("POST /api/walks/{id}/confirm", s.walkH.Confirm)
	mux.HandleFunc("POST /api/walks/{id}/swap", s.walkH.Swap)
	mux.HandleFunc("POST /api/walks/{id}/cover", s.walkH.Cover)

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.ReadAll)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.Read)
	mux.HandleFunc("POST /api/notifications/{id}/accept", s.notificationH.Accept)

	// Push
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, func(r *http.Request) (string, bool) {
		hid := session.HouseholdID(r.Context())
		return hid, hid != ""
	}, s.logger.With("component", "websocket")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
