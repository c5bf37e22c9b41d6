package autotune

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrcode/nightscout-autotune/internal/insulin"
	"github.com/mrcode/nightscout-autotune/internal/models"
)

// SourceProfile is the time-segmented profile a TunedProfile is built from.
// *models.Profile implements it.
type SourceProfile interface {
	Name() string
	GetUnits() string
	IsValid() bool
	BasalValues() []models.ProfileValue
	ISFMgdlValues() []models.ProfileValue
	ICValues() []models.ProfileValue
	BasalAt(secondsFromMidnight int) float64
	PureJSON() *models.Profile
}

// Insulin is the active insulin model. insulin.Local implements it.
type Insulin interface {
	Type() insulin.Type
	DIA() float64
	Peak() int
}

// Preferences is a read-only key-value settings store
type Preferences interface {
	GetDouble(key string, def float64) float64
	GetString(key, def string) string
	GetInt(key string, def int) int
}

// Clock provides the current instant and the local timezone
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// MapPreferences is an in-memory Preferences backed by string values
type MapPreferences map[string]string

// GetDouble returns the value parsed as float64, or def
func (m MapPreferences) GetDouble(key string, def float64) float64 {
	s, ok := m[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// GetString returns the raw value, or def
func (m MapPreferences) GetString(key, def string) string {
	if s, ok := m[key]; ok {
		return s
	}
	return def
}

// GetInt returns the value parsed as int, or def
func (m MapPreferences) GetInt(key string, def int) int {
	s, ok := m[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// SystemClock reads the wall clock and resolves the host timezone name
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Location returns the host timezone with its IANA name when it can be
// determined from $TZ or /etc/localtime, time.Local otherwise.
func (SystemClock) Location() *time.Location {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(strings.TrimPrefix(tz, ":")); err == nil {
			return loc
		}
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			if loc, err := time.LoadLocation(filepath.ToSlash(target[i+len("zoneinfo/"):])); err == nil {
				return loc
			}
		}
	}
	return time.Local
}

// FixedClock is a Clock frozen at a given instant
type FixedClock struct {
	At   time.Time
	Zone *time.Location
}

// Now returns the frozen instant
func (c FixedClock) Now() time.Time {
	return c.At
}

// Location returns the configured zone, UTC when unset
func (c FixedClock) Location() *time.Location {
	if c.Zone == nil {
		return time.UTC
	}
	return c.Zone
}

// Option configures a TunedProfile
type Option func(*TunedProfile)

// WithPreferences sets the preference store used by the exporters
func WithPreferences(prefs Preferences) Option {
	return func(p *TunedProfile) {
		if prefs != nil {
			p.prefs = prefs
		}
	}
}

// WithClock sets the clock used for timestamps and hour lookups
func WithClock(clock Clock) Option {
	return func(p *TunedProfile) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets the logger that receives export failures
func WithLogger(logger *slog.Logger) Option {
	return func(p *TunedProfile) {
		if logger != nil {
			p.logger = logger
		}
	}
}
