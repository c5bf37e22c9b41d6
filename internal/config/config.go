// Package config loads autotune preferences from the settings file and the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to preference keys when read from the environment
const EnvPrefix = "AUTOTUNE"

// Store is a read-only preference store backed by viper
type Store struct {
	v *viper.Viper
}

// New returns a store holding only the default settings
func New() *Store {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v, models.DefaultSettings())
	return &Store{v: v}
}

// Load reads the settings file at path. An empty path falls back to the
// default config location; a missing file is not an error.
func Load(path string) (*Store, error) {
	s := New()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		s.v.SetConfigFile(path)
	} else {
		dir, err := models.GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		s.v.SetConfigName("settings")
		s.v.AddConfigPath(dir)
	}
	s.v.SetConfigType("json")

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return s, nil
}

func setDefaults(v *viper.Viper, d *models.Settings) {
	v.SetDefault(models.KeyUnits, d.Unit)
	v.SetDefault(models.KeyMin5mCarbImpact, d.Min5mCarbImpact)
	v.SetDefault(models.KeyAutosensMax, d.AutosensMax)
	v.SetDefault(models.KeyAutosensMin, d.AutosensMin)
	v.SetDefault(models.KeyInsulinType, d.InsulinType)
	v.SetDefault(models.KeyInsulinPeak, d.InsulinPeak)
	v.SetDefault(models.KeyInsulinDIA, d.InsulinDIA)
	v.SetDefault(models.KeyProfileName, d.ProfileName)
	v.SetDefault(models.KeyNotify, d.Notify)
	v.SetDefault(models.KeyLogLevel, d.LogLevel)
}

// Set overrides a key for the lifetime of the store
func (s *Store) Set(key string, value any) {
	s.v.Set(key, value)
}

// ConfigFile returns the settings file in use, empty when none was read
func (s *Store) ConfigFile() string {
	return s.v.ConfigFileUsed()
}

// GetString returns the value of key as text, or def when unset
func (s *Store) GetString(key, def string) string {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// GetDouble returns the value of key as a float, or def when unset or unparsable
func (s *Store) GetDouble(key string, def float64) float64 {
	if !s.v.IsSet(key) {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s.v.GetString(key)), 64)
	if err != nil {
		return def
	}
	return f
}

// GetInt returns the value of key as an integer, or def when unset or unparsable.
// Fractional values are truncated.
func (s *Store) GetInt(key string, def int) int {
	if !s.v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(s.v.GetString(key))
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return int(f)
}

// GetBool returns the value of key as a boolean, or def when unset or unparsable
func (s *Store) GetBool(key string, def bool) bool {
	if !s.v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s.v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}

// Settings returns the resolved settings as the typed struct written by Save
func (s *Store) Settings() *models.Settings {
	d := models.DefaultSettings()
	return &models.Settings{
		Unit:            s.GetString(models.KeyUnits, d.Unit),
		Min5mCarbImpact: s.GetDouble(models.KeyMin5mCarbImpact, d.Min5mCarbImpact),
		AutosensMax:     s.GetString(models.KeyAutosensMax, d.AutosensMax),
		AutosensMin:     s.GetString(models.KeyAutosensMin, d.AutosensMin),
		InsulinType:     s.GetString(models.KeyInsulinType, d.InsulinType),
		InsulinPeak:     s.GetInt(models.KeyInsulinPeak, d.InsulinPeak),
		InsulinDIA:      s.GetDouble(models.KeyInsulinDIA, d.InsulinDIA),
		ProfileName:     s.GetString(models.KeyProfileName, d.ProfileName),
		Notify:          s.GetBool(models.KeyNotify, d.Notify),
		LogLevel:        s.GetString(models.KeyLogLevel, d.LogLevel),
	}
}
