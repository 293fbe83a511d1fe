package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/alerts"
	"github.com/obsidianstack/sentinel/server/internal/api"
	"github.com/obsidianstack/sentinel/server/internal/auth"
	"github.com/obsidianstack/sentinel/server/internal/collector"
	"github.com/obsidianstack/sentinel/server/internal/config"
	"github.com/obsidianstack/sentinel/server/internal/notify"
	"github.com/obsidianstack/sentinel/server/internal/scraper"
	"github.com/obsidianstack/sentinel/server/internal/store"
	"github.com/obsidianstack/sentinel/server/internal/telemetry"
	"github.com/obsidianstack/sentinel/server/internal/ws"
)

// shutdownTimeout bounds HTTP drain and in-flight notification delivery.
const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("sentinel-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"monitoring", cfg.Monitoring.Enabled,
		"interval", cfg.Monitoring.Interval,
		"buffer_size", cfg.Monitoring.BufferSize,
		"scrape_targets", len(cfg.Scrape.Targets),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Self-metrics registry, exposed on /metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.New(reg)

	// Metric sample buffer fed by the HTTP middleware, the ingest API and
	// the scraper.
	mc := collector.New(cfg.Monitoring.BufferSize)

	rules, err := initialRules(cfg)
	if err != nil {
		slog.Error("invalid alert rules", "err", err)
		os.Exit(1)
	}
	registry, err := alerts.NewRegistry(rules...)
	if err != nil {
		slog.Error("invalid alert rules", "err", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(
		buildSenders(cfg, logger),
		notify.RecipientsFromConfig(cfg.Notify.Recipients),
		notify.Options{SendTimeout: cfg.Notify.SendTimeout, Logger: logger, Metrics: metrics},
	)

	engine := alerts.NewEngine(mc, registry, store.New(), dispatcher, alerts.Options{
		Interval: cfg.Monitoring.Interval,
		Disabled: !cfg.Monitoring.Enabled,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err := engine.Start(ctx); err != nil {
		slog.Error("failed to start alert evaluation", "err", err)
		os.Exit(1)
	}

	// Hot reload: config rules and recipients are re-applied on every
	// successful reload; other settings need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			rules, err := alerts.RulesFromConfig(next.Monitoring.Rules)
			if err != nil {
				slog.Error("config: reloaded rules invalid, keeping previous rules", "err", err)
				return
			}
			if err := engine.ReplaceRules(alerts.SourceConfig, rules); err != nil {
				slog.Error("config: apply reloaded rules", "err", err)
				return
			}
			dispatcher.SetRecipients(notify.RecipientsFromConfig(next.Notify.Recipients))
		})
		if err != nil {
			slog.Warn("config: watch disabled", "path", *configPath, "err", err)
		}
	}()

	// Resource gauges from Prometheus text endpoints.
	sc := scraper.New(cfg.Scrape.Targets, mc, cfg.Scrape.Interval, scraper.Options{Logger: logger, Metrics: metrics})
	go sc.Run(ctx)

	// WebSocket hub: pushes stats and active alerts to dashboards.
	hub := ws.New(engine, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	apiHandler := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		api.New(engine, mc),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", collector.Middleware(mc, apiHandler))
	httpMux.Handle("/ws/alerts", hub)
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("sentinel-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	engine.Stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck

	delivered := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-shutdownCtx.Done():
		slog.Warn("notifications still in flight at shutdown")
	}
}

// initialRules returns the built-in table (unless disabled) followed by the
// rules from the config file.
func initialRules(cfg *config.Config) ([]types.AlertRule, error) {
	var rules []types.AlertRule
	if cfg.Monitoring.DefaultRules {
		rules = append(rules, alerts.DefaultRules()...)
	}
	fromConfig, err := alerts.RulesFromConfig(cfg.Monitoring.Rules)
	if err != nil {
		return nil, err
	}
	return append(rules, fromConfig...), nil
}

// buildSenders wires the channel transports. SMS and push have no gateway
// integration and are written to the log.
func buildSenders(cfg *config.Config, logger *slog.Logger) notify.Senders {
	s := notify.Senders{
		SMS:     notify.LogSender{Log: logger},
		Push:    notify.LogSender{Log: logger},
		Webhook: notify.NewHTTPWebhookSender(cfg.Notify.SendTimeout),
	}
	if e := cfg.Notify.Email; e.Host != "" {
		s.Email = notify.NewSMTPEmailSender(e.Host, e.Port, e.From, e.Username, e.Password())
	} else {
		slog.Warn("notify: no SMTP host configured, email channel disabled")
	}
	return s
}
