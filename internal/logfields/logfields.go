package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTarget     = "target"
	KeyStage      = "stage"
	KeyFilter     = "filter"
	KeyTier       = "tier"
	KeyPath       = "path"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyBytes      = "bytes"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Filter(name string) slog.Attr    { return slog.String(KeyFilter, name) }
func Tier(name string) slog.Attr      { return slog.String(KeyTier, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }

// Duration converts d to milliseconds under the canonical key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
