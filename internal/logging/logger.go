package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"airquality-gateway/internal/config"
)

// New returns the process logger. Dev builds get coloured tint output,
// everything else structured JSON.
func New(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" || cfg.AppEnv == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  cfg.Debug,
			TimeFormat: time.DateTime,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
