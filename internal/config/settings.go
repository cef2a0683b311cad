package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// Environment variables recognised by the daemon. Values from .ddd/.env are
// used only when the variable is not set in the process environment.
const (
	EnvDebounce    = "DDD_DEBOUNCE"
	EnvUserFilters = "DDD_USER_FILTERS"
	EnvMetricsAddr = "DDD_METRICS_ADDR"
	EnvNATSURL     = "DDD_NATS_URL"
	EnvNATSSubject = "DDD_NATS_SUBJECT"
	EnvHistory     = "DDD_HISTORY"
	EnvHistoryKeep = "DDD_HISTORY_KEEP"
	EnvQuiet       = "DDD_QUIET"
)

const (
	DefaultDebounce = 2 * time.Second
	// MinDebounce is the smallest accepted DDD_DEBOUNCE.
	MinDebounce = 100 * time.Millisecond

	DefaultNATSSubject = "ddd.runs"
	DefaultHistoryKeep = 200
)

// Settings are daemon knobs that are not part of config.json.
type Settings struct {
	Debounce       time.Duration
	UserFiltersDir string
	MetricsAddr    string
	NATSURL        string
	NATSSubject    string
	HistoryEnabled bool
	HistoryKeep    int
	Quiet          bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Debounce:       DefaultDebounce,
		UserFiltersDir: UserFiltersDir(),
		NATSSubject:    DefaultNATSSubject,
		HistoryEnabled: true,
		HistoryKeep:    DefaultHistoryKeep,
	}
}

// LoadSettings merges the project .env file under the process environment and
// parses the result.
func LoadSettings(layout Layout) (Settings, error) {
	fileEnv := map[string]string{}
	if _, err := os.Stat(layout.EnvPath()); err == nil {
		parsed, err := godotenv.Read(layout.EnvPath())
		if err != nil {
			return Settings{}, ferrors.WrapError(err, ferrors.CategoryConfig, "parse env file").
				WithContext("path", layout.EnvPath()).
				Build()
		}
		fileEnv = parsed
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	return ParseSettings(lookup)
}

// ParseSettings builds Settings from a lookup function.
func ParseSettings(lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	if v, ok := lookup(EnvDebounce); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < MinDebounce {
			return Settings{}, ferrors.ConfigError("debounce must be a duration of at least "+MinDebounce.String()).
				WithContext("key", EnvDebounce).
				WithContext("value", v).
				Build()
		}
		s.Debounce = d
	}
	if v, ok := lookup(EnvUserFilters); ok {
		s.UserFiltersDir = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		s.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvNATSURL); ok {
		s.NATSURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvNATSSubject); ok && strings.TrimSpace(v) != "" {
		s.NATSSubject = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHistory); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Settings{}, ferrors.ConfigError("invalid boolean").
				WithContext("key", EnvHistory).
				WithContext("value", v).
				Build()
		}
		s.HistoryEnabled = b
	}
	if v, ok := lookup(EnvHistoryKeep); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return Settings{}, ferrors.ConfigError("history keep must be a positive integer").
				WithContext("key", EnvHistoryKeep).
				WithContext("value", v).
				Build()
		}
		s.HistoryKeep = n
	}
	if v, ok := lookup(EnvQuiet); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Settings{}, ferrors.ConfigError("invalid boolean").
				WithContext("key", EnvQuiet).
				WithContext("value", v).
				Build()
		}
		s.Quiet = b
	}
	return s, nil
}
