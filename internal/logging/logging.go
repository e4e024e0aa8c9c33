// Package logging builds the process-wide structured logger, following
// malbeclabs-doublezero's newLogger(verbose) shape (see e.g.
// telemetry/flow-ingest/cmd/server/main.go) but generalized into a
// reusable constructor rather than a per-binary private function.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a tint-rendered slog.Logger writing to stderr so that
// stdout stays free for the terminal UI. verbose selects
// slog.LevelDebug over the default slog.LevelInfo.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}
