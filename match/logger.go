package match

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger replaces the package-level logger. The matching engine never
// logs on the per-order hot path; this is only reached for invariant
// breaches and recovered trade-sink panics.
func SetLogger(l *slog.Logger) {
	logger = l
}
