package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/fairshare/internal/config"
	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/jobs"
	"github.com/dukerupert/fairshare/internal/lock"
	"github.com/dukerupert/fairshare/internal/logging"
	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/push"
	"github.com/dukerupert/fairshare/internal/server"
	"github.com/dukerupert/fairshare/internal/store"
	ws "github.com/dukerupert/fairshare/internal/websocket"
)

const usage = `usage: fairshare [serve|sweep|reconcile|remind|vapid-keys]

  serve       run the HTTP API and background jobs (default)
  sweep       run the rotation sweep once and exit
  reconcile   run absence reconciliation once and exit
  remind      queue overdue reminders, deliver due ones and exit
  vapid-keys  print a fresh VAPID key pair`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(args []string) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}

	if cmd == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("FAIRSHARE_VAPID_PUBLIC_KEY=%s\nFAIRSHARE_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("load timezone", "error", err)
		return 1
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return 1
	}
	defer db.Close()

	rec, err := metrics.NewPrometheus(prometheus.DefaultRegisterer, "fairshare")
	if err != nil {
		slog.Error("register metrics", "error", err)
		return 1
	}

	hub := ws.NewHub(logger.With("component", "websocket_hub"))
	eng := engine.New(db, logger,
		engine.WithLocation(loc),
		engine.WithNotifier(server.HubNotifier(hub)),
		engine.WithMetrics(rec),
	)

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		locker = lock.NewRedis(client, "fairshare:lock:", logger)
		slog.Info("using redis job locks", "addr", cfg.RedisAddr)
	}

	var dispatcher *push.Dispatcher
	if cfg.PushEnabled() {
		dispatcher = newDispatcher(db, cfg, rec, logger)
	} else {
		slog.Info("push disabled, reminders stay queued")
	}

	runner := jobs.NewRunner(locker, logger)
	sweep := jobs.Job{
		Name:       engine.JobRotationSweep,
		Interval:   cfg.JobInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := eng.RunRotationSweep(ctx)
			return err
		},
	}
	reconcile := jobs.Job{
		Name:       engine.JobAbsenceReconciliation,
		Interval:   cfg.JobInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := eng.RunAbsenceReconciliation(ctx)
			return err
		},
	}
	remind := jobs.Job{
		Name:     "reminders",
		Interval: cfg.ReminderInterval,
		Run: func(ctx context.Context) error {
			if _, err := eng.ScheduleOverdueReminders(ctx); err != nil {
				return err
			}
			if dispatcher == nil {
				return nil
			}
			_, err := dispatcher.Dispatch(ctx)
			return err
		},
	}

	switch cmd {
	case "serve":
	case "sweep":
		return runOnce(runner, sweep)
	case "reconcile":
		return runOnce(runner, reconcile)
	case "remind":
		return runOnce(runner, remind)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	srv := server.New(db, eng, hub, dispatcher, prometheus.DefaultGatherer, server.Config{
		APITokenHash:   cfg.APITokenHash,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
	}, logger)
	if cfg.APITokenHash == "" {
		slog.Warn("FAIRSHARE_API_TOKEN_HASH not set, API is unauthenticated")
	}

	runner.Add(sweep)
	runner.Add(reconcile)
	runner.Add(remind)
	runner.Add(jobs.Job{
		Name:     "rate_limit_cleanup",
		Interval: time.Hour,
		Run: func(context.Context) error {
			srv.RateLimiter().Cleanup()
			return nil
		},
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	runner.Start(jobCtx)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("fairshare starting", "addr", httpServer.Addr, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		slog.Error("server error", "error", err)
		runner.Stop()
		return 1
	}

	slog.Info("shutting down")
	runner.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	return 0
}

func newDispatcher(db *sql.DB, cfg config.Config, rec metrics.Recorder, logger *slog.Logger) *push.Dispatcher {
	sender := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	return push.NewDispatcher(
		sender,
		store.NewReminderStore(db),
		store.NewPushStore(db),
		store.NewAssignmentStore(db),
		store.NewTaskStore(db),
		rec,
		logger.With("component", "push_dispatcher"),
	)
}

// runOnce executes a single job under its lock and maps the outcome to an
// exit code. A held lock exits 0 since another replica is doing the work.
func runOnce(runner *jobs.Runner, j jobs.Job) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var failed bool
	job := j
	job.Run = func(ctx context.Context) error {
		err := j.Run(ctx)
		failed = err != nil
		return err
	}
	if !runner.RunOnce(ctx, job) {
		slog.Info("job not run", "job", j.Name)
	}
	if failed {
		return 1
	}
	return 0
}
