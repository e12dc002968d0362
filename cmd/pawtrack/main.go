package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/pawtrack/internal/config"
	"github.com/dukerupert/pawtrack/internal/database"
	"github.com/dukerupert/pawtrack/internal/logging"
	"github.com/dukerupert/pawtrack/internal/metrics"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/notify"
	"github.com/dukerupert/pawtrack/internal/persist"
	"github.com/dukerupert/pawtrack/internal/push"
	"github.com/dukerupert/pawtrack/internal/reminder"
	"github.com/dukerupert/pawtrack/internal/server"
	"github.com/dukerupert/pawtrack/internal/session"
	"github.com/dukerupert/pawtrack/internal/state"
	"github.com/dukerupert/pawtrack/internal/store"
	"github.com/dukerupert/pawtrack/internal/websocket"
)

type CLI struct {
	EnvFile string `name:"env-file" help:"Optional dotenv file loaded before the environment" default:".env" type:"path"`

	Serve     ServeCmd     `cmd:"" default:"1" help:"Run the HTTP server"`
	Migrate   MigrateCmd   `cmd:"" help:"Apply database migrations and exit"`
	VAPIDKeys VAPIDKeysCmd `cmd:"" name:"vapid-keys" help:"Generate a VAPID key pair for web push"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pawtrack"),
		kong.Description("Household dog-walk coordination server."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("migrations applied", "db_path", cfg.DBPath)
	return nil
}

type VAPIDKeysCmd struct{}

func (c *VAPIDKeysCmd) Run() error {
	public, private, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Printf("%sVAPID_PUBLIC_KEY=%s\n", config.Prefix, public)
	fmt.Printf("%sVAPID_PRIVATE_KEY=%s\n", config.Prefix, private)
	return nil
}

type ServeCmd struct{}

// cleaner joins the two stores the cleanup job prunes.
type cleaner struct {
	notifications *store.NotificationStore
	sessions      *store.SessionStore
}

func (c cleaner) DeleteReadBefore(cutoff time.Time) (int64, error) {
	return c.notifications.DeleteReadBefore(cutoff)
}

func (c cleaner) DeleteExpired(now time.Time) (int64, error) {
	return c.sessions.DeleteExpired(now)
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	repo := store.NewRepository(db)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(promReg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fanout := notify.NewFanout(logger)
	hub := websocket.NewHub(logger)

	queue := persist.NewQueue(repo, cfg.PersistQueueSize, logger, persist.WithMetrics(recorder))
	reg := session.NewRegistry(state.Options{
		Queue:      queue,
		Publisher:  fanout,
		Metrics:    recorder,
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
	})
	queue.SetConflictHandler(reg.HandleConflict)
	queue.SetCommitHandler(reg.HandleCommit)
	queue.Start(context.WithoutCancel(ctx))
	defer queue.Stop()

	fanout.AddLocal(notify.SinkFunc(reg.Deliver))
	fanout.AddLocal(notify.HubSink(hub))

	if cfg.PushEnabled() {
		notifier := push.NewNotifier(push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey), repo.Push, logger)
		notifier.Start(ctx)
		defer notifier.Stop()
		fanout.AddRemote(notify.SinkFunc(func(_, householdID string, n model.Notification) {
			notifier.Notify(householdID, n)
		}))
		logger.Info("web push enabled")
	}

	if cfg.NATSURL != "" {
		bridge, err := notify.Connect(cfg.NATSURL, notify.SinkFunc(fanout.DeliverLocal), logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer bridge.Close()
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("subscribe nats: %w", err)
		}
		fanout.AddRemote(bridge)
	}

	if _, err := reg.Restore(repo.Sessions, time.Now().UTC()); err != nil {
		logger.Warn("restore sessions", "error", err)
	}

	runner := reminder.NewRunner(reminder.Config{
		Lead:            cfg.ReminderLead,
		Grace:           cfg.MissedGrace,
		CheckInterval:   cfg.ReminderInterval,
		CleanupInterval: cfg.CleanupInterval,
	}, reg, repo, cleaner{notifications: repo.Notifications, sessions: repo.Sessions}, queue, fanout, logger)
	sched, err := reminder.NewScheduler(runner)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("stop scheduler", "error", err)
		}
	}()

	srv := server.New(server.Options{
		Sessions:       reg,
		Repo:           repo,
		Hub:            hub,
		Metrics:        promReg,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
		LoginRateLimit: cfg.LoginRateLimit,
		Logger:         logger,
	})
	go srv.RateLimiter().Run(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pawtrack listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
