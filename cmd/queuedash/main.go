package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/livinlefevreloca/queuedash/internal/config"
	"github.com/livinlefevreloca/queuedash/internal/dispatch"
	"github.com/livinlefevreloca/queuedash/internal/journal"
	"github.com/livinlefevreloca/queuedash/internal/logviewer"
	"github.com/livinlefevreloca/queuedash/internal/notify"
	"github.com/livinlefevreloca/queuedash/internal/poller"
	"github.com/livinlefevreloca/queuedash/internal/present"
	"github.com/livinlefevreloca/queuedash/internal/queueclient"
	"github.com/livinlefevreloca/queuedash/internal/snapshot"
	"github.com/livinlefevreloca/queuedash/internal/web"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Hour
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file (TOML or YAML)")
	engineURL := flag.String("engine", "", "Queue engine base URL (overrides config)")
	once := flag.Bool("once", false, "Fetch once, print the dashboard and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "config_file", *configFile)
		os.Exit(1)
	}
	if *engineURL != "" {
		cfg.Engine.BaseURL = *engineURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// -once prints the dashboard on stdout
	logOut := os.Stdout
	if *once {
		logOut = os.Stderr
	}
	logger := newLogger(cfg.Logging, logOut)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := queueclient.New(cfg.Engine, logger.With("component", "queueclient"))
	if err != nil {
		logger.Error("failed to create engine client", "error", err)
		os.Exit(1)
	}

	logger.Info("starting queuedash",
		"engine", client.BaseURL(),
		"poll_interval", cfg.Poller.Interval)

	store := snapshot.NewStore(snapshot.WithStaleGuard(cfg.Poller.StaleGuard))

	ctrl, err := poller.New(cfg.Poller, client, store, logger.With("component", "poller"))
	if err != nil {
		logger.Error("failed to create poller", "error", err)
		os.Exit(1)
	}

	if *once {
		os.Exit(runOnce(ctx, ctrl, store, logger))
	}

	notes, err := notify.NewQueue(cfg.Notify, logger.With("component", "notify"))
	if err != nil {
		logger.Error("failed to create notification queue", "error", err)
		os.Exit(1)
	}

	var (
		dispatchOpts []dispatch.Option
		webOpts      = []web.Option{web.WithConfirmParam(cfg.HTTP.ConfirmParam)}
	)
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal, logger.With("component", "journal"))
		if err != nil {
			logger.Error("failed to open journal", "error", err, "dsn", cfg.Journal.DSN)
			os.Exit(1)
		}
		defer j.Close()

		dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(j))
		webOpts = append(webOpts, web.WithHistory(j))
		go pruneLoop(ctx, j, cfg.Journal.Retention, logger)
	}

	dispatcher := dispatch.New(client, ctrl, logviewer.New(logger.With("component", "logviewer")),
		notes, logger.With("component", "dispatch"), dispatchOpts...)

	if err := ctrl.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	var server *http.Server
	if cfg.HTTP.Enabled {
		handler := web.NewHandler(store, ctrl, dispatcher, notes, logger.With("component", "http"), webOpts...)
		server = &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           web.NewRouter(handler),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("http api listening", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
				stop()
			}
		}()
	}

	logger.Info("queuedash is running")
	<-ctx.Done()

	logger.Info("shutting down gracefully")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown incomplete", "error", err)
		}
		cancel()
	}

	if err := ctrl.Stop(); err != nil && !errors.Is(err, poller.ErrNotRunning) {
		logger.Warn("failed to stop poller", "error", err)
	}
	ctrl.Wait()

	stats := ctrl.Stats()
	logger.Info("queuedash stopped",
		"cycles", stats.Cycles,
		"failed_reads", stats.FailedReads,
		"stale_reads", stats.StaleReads)
}

// runOnce performs a single cycle and prints the dashboard to stdout
func runOnce(ctx context.Context, ctrl *poller.Controller, store *snapshot.Store, logger *slog.Logger) int {
	result := ctrl.RefreshNow(ctx)
	for resource, err := range result.Errors {
		logger.Warn("fetch failed", "resource", resource.String(), "error", err)
	}

	status, statusMeta := store.Status()
	jobs, _ := store.Jobs()
	dlq, _ := store.Dlq()

	dashboard := present.Dashboard{
		Status: present.Status(status, statusMeta.Fetched()),
		Jobs:   present.Rows(present.ListMain, jobs),
		DLQ:    present.Rows(present.ListDLQ, dlq),
	}
	if err := present.RenderText(os.Stdout, dashboard); err != nil {
		logger.Error("failed to render dashboard", "error", err)
		return 1
	}

	if len(result.Errors) == len(snapshot.Resources) {
		return 1
	}
	return 0
}

func pruneLoop(ctx context.Context, j *journal.Journal, keep int, logger *slog.Logger) {
	if keep <= 0 {
		return
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		if _, err := j.Prune(ctx, keep); err != nil && ctx.Err() == nil {
			logger.Warn("journal prune failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
