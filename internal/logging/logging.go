// Package logging wires up the engine's slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// New builds a slog.Logger with a tint handler writing to w.
// Components receive a *slog.Logger via constructor injection and
// scope it with .With(slog.String("component", name)); nothing in
// this engine reads slog.Default() from inside business logic.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}
