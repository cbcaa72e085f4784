package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRepo       = "repository"
	KeyURL        = "url"
	KeyRef        = "ref"
	KeyPath       = "path"
	KeyStrategy   = "strategy"
	KeyRunID      = "run_id"
	KeyStep       = "step"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Repository(name string) slog.Attr { return slog.String(KeyRepo, name) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Ref(r string) slog.Attr           { return slog.String(KeyRef, r) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Strategy(s string) slog.Attr      { return slog.String(KeyStrategy, s) }
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Step(s string) slog.Attr          { return slog.String(KeyStep, s) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
