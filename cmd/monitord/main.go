package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cavernlsd/observability/logging"
	"cavernlsd/observability/metrics"
	telemetry "cavernlsd/observability/otel"
	"cavernlsd/services/chainquery"
	"cavernlsd/services/monitor"
	"cavernlsd/services/monitord/config"
	"cavernlsd/services/monitord/server"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "services/monitord/config.yaml", "path to monitord configuration file")
	flag.BoolVar(&once, "once", false, "poll every wrapper once, print the snapshots and exit")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("monitord: load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("CAVERN_ENV"))
	opts := logging.Options{Service: "monitord", Env: env, Level: logging.ParseLevel(cfg.Logging.Level)}
	if cfg.Logging.File != "" {
		opts.File = &logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   true,
		}
	}
	logger, closer := logging.SetupWithOptions(opts)
	defer closer.Close()

	telCfg := telemetry.FromEnv("monitord", env)
	if cfg.Telemetry.Endpoint != "" {
		telCfg.Endpoint = cfg.Telemetry.Endpoint
		telCfg.Insecure = cfg.Telemetry.Insecure
		telCfg.Traces = cfg.Telemetry.Traces
		telCfg.Metrics = cfg.Telemetry.Metrics
	}
	if cfg.Telemetry.SampleRatio > 0 {
		telCfg.SampleRatio = cfg.Telemetry.SampleRatio
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telCfg)
	if err != nil {
		log.Fatalf("monitord: init telemetry: %v", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	client, err := chainquery.Dial(chainquery.Config{
		Address:          cfg.Chain.GRPCAddress,
		Insecure:         cfg.Chain.Insecure,
		QueriesPerSecond: cfg.Chain.QueriesPerSecond,
		Burst:            cfg.Chain.Burst,
		Timeout:          cfg.Chain.Timeout.Duration,
	})
	if err != nil {
		log.Fatalf("monitord: %v", err)
	}
	defer client.Close()

	recorder := monitor.Recorder(monitor.NoopRecorder{})
	if !once {
		db, err := monitor.OpenDatabase(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("monitord: open database: %v", err)
		}
		gormRecorder, err := monitor.NewGormRecorder(db)
		if err != nil {
			log.Fatalf("monitord: %v", err)
		}
		recorder = gormRecorder
		logger.Info("recording snapshots", slog.String("database", logging.MaskDSN(cfg.DatabaseDSN)))
	}

	mon, err := monitor.New(client, cfg.Targets(), monitor.Options{
		Recorder: recorder,
		Metrics:  metrics.Monitor(),
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("monitord: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		runOnce(ctx, mon, logger)
		return
	}

	sched, err := monitor.NewScheduler(ctx, mon, cfg.Schedule, logger)
	if err != nil {
		log.Fatalf("monitord: %v", err)
	}
	if _, err := mon.Poll(ctx); err != nil {
		logger.Warn("initial poll finished with errors", slog.String("error", err.Error()))
	}
	sched.Start()
	defer sched.Stop()

	api := server.New(server.Config{
		Source:   mon,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
		Auth: server.AuthConfig{
			HMACSecret: cfg.Admin.Secret(),
			Issuer:     cfg.Admin.Issuer,
			Audience:   cfg.Admin.Audience,
		},
	})
	mon.OnPoll(api.Publish)
	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("monitord listening", slog.String("address", cfg.ListenAddress), slog.Int("wrappers", len(cfg.Wrappers)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("monitord: serve: %v", err)
	}
}

func runOnce(ctx context.Context, mon *monitor.Monitor, logger *slog.Logger) {
	snaps, err := mon.Poll(ctx)
	for _, snap := range snaps {
		v := monitor.NewView(snap, 6)
		logger.Info("snapshot",
			slog.String("wrapper", v.Wrapper),
			slog.String("exchange_rate", v.ExchangeRate),
			slog.String("expected_exchange_rate", v.ExpectedRate),
			slog.String("pending_lsd_rewards", v.PendingLSD),
			slog.Bool("slashed", v.Slashed),
			slog.String("blocked", v.Blocked))
	}
	if err != nil {
		logger.Error("poll finished with errors", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
