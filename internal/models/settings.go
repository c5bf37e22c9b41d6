// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// Preference keys shared by the settings file, environment and the tuning core
const (
	KeyUnits           = "units"
	KeyMin5mCarbImpact = "openapsama_min_5m_carbimpact"
	KeyAutosensMax     = "openapsama_autosens_max"
	KeyAutosensMin     = "openapsama_autosens_min"
	KeyInsulinType     = "insulin_type"
	KeyInsulinPeak     = "insulin_oref_peak"
	KeyInsulinDIA      = "insulin_dia"
	KeyProfileName     = "profile_name"
	KeyNotify          = "notify"
	KeyLogLevel        = "log_level"
)

// Documented fallbacks for missing or unparsable preferences
const (
	DefaultMin5mCarbImpact = 3.0
	DefaultAutosensMax     = "1.2"
	DefaultAutosensMin     = "0.7"
	DefaultFreePeakMinutes = 75
	DefaultInsulinDIA      = 5.0
)

// Settings contains all application settings
type Settings struct {
	// Display settings
	Unit string `json:"units"` // "mg/dL" or "mmol/L"

	// Autotune preferences (AAPS key names)
	Min5mCarbImpact float64 `json:"openapsama_min_5m_carbimpact"` // mg/dL per 5 min
	AutosensMax     string  `json:"openapsama_autosens_max"`      // Stored as text, parsed on use
	AutosensMin     string  `json:"openapsama_autosens_min"`

	// Insulin model
	InsulinType string  `json:"insulin_type"`      // "ultra-rapid", "rapid-acting", "lyumjev", "free-peak"
	InsulinPeak int     `json:"insulin_oref_peak"` // Minutes, free-peak only
	InsulinDIA  float64 `json:"insulin_dia"`       // Hours

	// Profile selection
	ProfileName string `json:"profile_name"` // Empty = store default

	// System settings
	Notify   bool   `json:"notify"`
	LogLevel string `json:"log_level"` // "debug", "info", "warn", "error"
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		Unit: "mg/dL",

		Min5mCarbImpact: DefaultMin5mCarbImpact,
		AutosensMax:     DefaultAutosensMax,
		AutosensMin:     DefaultAutosensMin,

		InsulinType: "rapid-acting",
		InsulinPeak: DefaultFreePeakMinutes,
		InsulinDIA:  DefaultInsulinDIA,

		ProfileName: "",

		Notify:   false,
		LogLevel: "info",
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	appDir := filepath.Join(configDir, "nightscout-autotune")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		return "", err
	}

	return appDir, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Save saves settings to the default config path
func (s *Settings) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo writes settings as indented JSON to path
func (s *Settings) SaveTo(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
