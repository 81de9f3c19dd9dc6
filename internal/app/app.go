package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-gateway/internal/config"
	"airquality-gateway/internal/identity"
	"airquality-gateway/internal/metrics"
	"airquality-gateway/internal/mqtt"
	"airquality-gateway/internal/nilu"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"debug", cfg.Debug,
		"url", cfg.URL,
		"mqttHost", cfg.MQTTHost,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"mqttClientID", cfg.MQTTClientID,
		"metricsAddr", cfg.MetricsAddr,
	)

	serial := identity.Serial(cfg.CPUInfoPath)
	logger.Info("device identity", "serial", serial)

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, m.Handler(), logger)
		defer stop()
	}

	loop := &Loop{
		URL:    cfg.URL,
		Serial: serial,
		Fetcher: nilu.NewClient(nilu.Options{
			UserAgent: cfg.UserAgent,
			Debug:     cfg.Debug,
		}, logger),
		Publisher: mqtt.NewPublisher(mqtt.Options{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		}, logger),
		Logger:   logger,
		Observer: m,
	}

	return loop.Run(ctx)
}

// serveMetrics exposes /metrics on addr in the background. The returned func
// shuts the listener down.
func serveMetrics(addr string, h http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown", "error", err)
		}
	}
}
