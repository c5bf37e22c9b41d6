package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings.Unit != "mg/dL" {
		t.Errorf("Default unit = %s, want mg/dL", settings.Unit)
	}
	if settings.Min5mCarbImpact != 3.0 {
		t.Errorf("Default min 5m carb impact = %v, want 3.0", settings.Min5mCarbImpact)
	}
	if settings.AutosensMax != "1.2" {
		t.Errorf("Default autosens max = %s, want 1.2", settings.AutosensMax)
	}
	if settings.AutosensMin != "0.7" {
		t.Errorf("Default autosens min = %s, want 0.7", settings.AutosensMin)
	}
	if settings.InsulinPeak != 75 {
		t.Errorf("Default insulin peak = %d, want 75", settings.InsulinPeak)
	}
	if settings.InsulinType != "rapid-acting" {
		t.Errorf("Default insulin type = %s, want rapid-acting", settings.InsulinType)
	}
}

func TestSettings_JSONKeys(t *testing.T) {
	data, err := json.Marshal(DefaultSettings())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{
		KeyUnits, KeyMin5mCarbImpact, KeyAutosensMax, KeyAutosensMin,
		KeyInsulinType, KeyInsulinPeak, KeyInsulinDIA, KeyProfileName, KeyNotify, KeyLogLevel,
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("settings JSON is missing key %q", key)
		}
	}
}

func TestSettings_SaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	original := DefaultSettings()
	original.InsulinType = "free-peak"
	original.InsulinPeak = 48
	original.Notify = true

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if loaded != *original {
		t.Errorf("loaded settings = %+v, want %+v", loaded, *original)
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", os.Getenv("XDG_CONFIG_HOME"))
	t.Setenv("HOME", os.Getenv("XDG_CONFIG_HOME"))

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if filepath.Base(dir) != "nightscout-autotune" {
		t.Errorf("GetConfigDir() = %s, want nightscout-autotune suffix", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("config dir was not created: %v", err)
	}
}
