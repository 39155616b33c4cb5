package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/discord"
	"github.com/winter-dragon/dragonlog/internal/gateway"
	"github.com/winter-dragon/dragonlog/internal/metrics"
	"github.com/winter-dragon/dragonlog/internal/notify"
	"github.com/winter-dragon/dragonlog/internal/pipeline"
	"github.com/winter-dragon/dragonlog/internal/store"
)

var (
	runPort      int
	runLogDir    string
	runNoGateway bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot, the audit pipeline and the control plane",
	Long: `Connects to the Discord gateway and processes every audit log entry of
the configured guilds: each entry is classified, its handler builds a
notification and the notification is posted to the action's log channel and
the GLOBAL channel. Configured mirrors (Slack, Telegram, email, webhook,
NATS) receive a copy.

A local control plane is served on http://127.0.0.1:6090 by default:

  GET  /health                                   liveness and pipeline health
  GET  /api/status                               counters and last entry
  GET  /api/actions                              registered handlers
  GET  /api/audit-logs                           recorded entries (?guild_id, action, page)
  PUT  /api/guilds/{guild_id}/log-channels/{name} map a log channel
  PUT  /api/guilds/{guild_id}/sync-ban           join the ban sync network
  GET  /events                                   SSE stream of processed entries
  GET  /metrics                                  Prometheus metrics`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runPort, "port", 0,
		"HTTP port of the control plane (default 6090, overrides config)")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "logs",
		"directory to write run logs to")
	runCmd.Flags().BoolVar(&runNoGateway, "no-gateway", false,
		"do not start the HTTP control plane")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	logFilePath, closeLog, err := setupFileLogger(runLogDir)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer closeLog()

	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if runPort > 0 {
		cfg.Gateway.Port = runPort
	}

	logger := slog.Default()
	reg, err := audit.NewRegistry(logger, audit.DefaultHandlers())
	if err != nil {
		return fmt.Errorf("building handler registry: %w", err)
	}
	st := store.New(db)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	bot, err := discord.New(cfg.Discord, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(cfg.Notify, bot, st, logger)
	defer dispatcher.Close()

	gw := gateway.New(cfg, db, reg, promReg)
	p := pipeline.New(reg, st, dispatcher, pipeline.Options{
		Workers:       cfg.Pipeline.Workers,
		EntryTimeout:  cfg.Pipeline.EntryTimeout,
		RecordEntries: cfg.Pipeline.RecordEntries,
		Metrics:       m,
		Logger:        logger,
		OnProcessed:   gw.Observe,
	})

	if err := bot.Open(); err != nil {
		return err
	}
	defer bot.Close()

	fmt.Println(headerStyle.Render("dragonlog running"))
	fmt.Printf("  Handlers   : %d\n", len(reg.Descriptors()))
	fmt.Printf("  Workers    : %d\n", cfg.Pipeline.Workers)
	fmt.Printf("  Mirrors    : %v\n", dispatcher.Mirrors())
	if !runNoGateway {
		fmt.Printf("  API        : http://127.0.0.1:%d\n", cfg.Gateway.Port)
		fmt.Printf("  Events     : http://127.0.0.1:%d/events\n", cfg.Gateway.Port)
	}
	fmt.Printf("  Logs       : %s\n\n", logFilePath)
	fmt.Println(dimStyle.Render("Press Ctrl+C to stop gracefully."))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := p.Run(gctx, bot.Entries())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if !runNoGateway {
		g.Go(func() error { return gw.Start(gctx) })
	}
	return g.Wait()
}

func setupFileLogger(logDir string) (string, func(), error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("dragonlog-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "dragonlog.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return "", nil, fmt.Errorf("opening latest log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, runFile, latestFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(level)

	cleanup := func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}
	return runLogPath, cleanup, nil
}
