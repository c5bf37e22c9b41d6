package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SecondsPerDay is the length of a profile day
const SecondsPerDay = 24 * 60 * 60

// ProfileValue is one breakpoint of a piecewise-constant daily series
type ProfileValue struct {
	Time          string  `json:"time"`          // "HH:MM"
	TimeAsSeconds int     `json:"timeAsSeconds"` // Seconds from midnight, [0, 86400)
	Value         float64 `json:"value"`
}

// NewProfileValue creates a breakpoint at the given offset with a formatted time label
func NewProfileValue(seconds int, value float64) ProfileValue {
	return ProfileValue{
		Time:          fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60),
		TimeAsSeconds: seconds,
		Value:         value,
	}
}

// UnmarshalJSON accepts numbers encoded as strings and derives timeAsSeconds
// from "time" when the offset is missing, as older Nightscout uploads do.
func (v *ProfileValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time          string          `json:"time"`
		TimeAsSeconds json.RawMessage `json:"timeAsSeconds"`
		Value         json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value, err := parseFlexFloat(raw.Value)
	if err != nil {
		return fmt.Errorf("parsing value at %q: %w", raw.Time, err)
	}

	var seconds int
	if len(raw.TimeAsSeconds) > 0 && string(raw.TimeAsSeconds) != "null" {
		f, err := parseFlexFloat(raw.TimeAsSeconds)
		if err != nil {
			return fmt.Errorf("parsing timeAsSeconds at %q: %w", raw.Time, err)
		}
		seconds = int(f)
	} else {
		seconds, err = parseClock(raw.Time)
		if err != nil {
			return err
		}
	}

	v.Time = raw.Time
	v.TimeAsSeconds = seconds
	v.Value = value
	return nil
}

// parseFlexFloat parses a JSON number or a quoted number
func parseFlexFloat(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errors.New("missing number")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// parseClock converts "HH:MM" into seconds from midnight
func parseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return h*3600 + m*60, nil
}

// ValueAt returns the value in effect at the given second of the day
func ValueAt(values []ProfileValue, secondsFromMidnight int) float64 {
	result := 0.0
	for _, v := range values {
		if v.TimeAsSeconds > secondsFromMidnight {
			break
		}
		result = v.Value
	}
	return result
}

// Profile is a single Nightscout profile ("pure profile" JSON schema)
type Profile struct {
	ProfileName string         `json:"-"` // Key of the profile inside its store
	DIA         float64        `json:"dia"`
	CarbRatio   []ProfileValue `json:"carbratio"`
	Sens        []ProfileValue `json:"sens"` // In profile units
	Basal       []ProfileValue `json:"basal"`
	TargetLow   []ProfileValue `json:"target_low,omitempty"`
	TargetHigh  []ProfileValue `json:"target_high,omitempty"`
	Units       string         `json:"units,omitempty"` // "mg/dl" or "mmol"
	Timezone    string         `json:"timezone,omitempty"`
}

// UnmarshalJSON accepts dia as a number or a quoted number
func (p *Profile) UnmarshalJSON(data []byte) error {
	type alias Profile
	aux := struct {
		*alias
		DIA json.RawMessage `json:"dia"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.DIA) > 0 && string(aux.DIA) != "null" {
		dia, err := parseFlexFloat(aux.DIA)
		if err != nil {
			return fmt.Errorf("parsing dia: %w", err)
		}
		p.DIA = dia
	}
	return nil
}

// ParseProfile parses a single profile document
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if u := NormalizeUnits(p.Units); u != "" {
		p.Units = u
	}
	return &p, nil
}

// Name returns the display name of the profile
func (p *Profile) Name() string {
	return p.ProfileName
}

// GetUnits returns the normalized profile units, defaulting to mg/dL
func (p *Profile) GetUnits() string {
	if u := NormalizeUnits(p.Units); u != "" {
		return u
	}
	return UnitMgdl
}

// BasalValues returns the basal series in U/h
func (p *Profile) BasalValues() []ProfileValue {
	return p.Basal
}

// ICValues returns the carb ratio series in g/U
func (p *Profile) ICValues() []ProfileValue {
	return p.CarbRatio
}

// ISFMgdlValues returns the sensitivity series converted to mg/dL per unit
func (p *Profile) ISFMgdlValues() []ProfileValue {
	if p.GetUnits() != UnitMmol {
		return p.Sens
	}
	out := make([]ProfileValue, len(p.Sens))
	for i, v := range p.Sens {
		out[i] = v
		out[i].Value = ToMgdl(v.Value)
	}
	return out
}

// BasalAt returns the basal rate in effect at the given second of the day
func (p *Profile) BasalAt(secondsFromMidnight int) float64 {
	return ValueAt(p.Basal, secondsFromMidnight)
}

// PureJSON returns a deep copy of the profile suitable for re-serialization
func (p *Profile) PureJSON() *Profile {
	c := *p
	c.CarbRatio = append([]ProfileValue(nil), p.CarbRatio...)
	c.Sens = append([]ProfileValue(nil), p.Sens...)
	c.Basal = append([]ProfileValue(nil), p.Basal...)
	c.TargetLow = append([]ProfileValue(nil), p.TargetLow...)
	c.TargetHigh = append([]ProfileValue(nil), p.TargetHigh...)
	return &c
}

// IsValid reports whether the profile passes Validate
func (p *Profile) IsValid() bool {
	return p.Validate() == nil
}

// Validate checks the profile is usable for tuning
func (p *Profile) Validate() error {
	if p.DIA <= 0 || math.IsNaN(p.DIA) || math.IsInf(p.DIA, 0) {
		return fmt.Errorf("invalid dia %v", p.DIA)
	}
	if p.Units != "" && NormalizeUnits(p.Units) == "" {
		return fmt.Errorf("unknown units %q", p.Units)
	}
	if err := validateSeries("basal", p.Basal, true); err != nil {
		return err
	}
	if err := validateSeries("sens", p.Sens, false); err != nil {
		return err
	}
	return validateSeries("carbratio", p.CarbRatio, false)
}

// validateSeries checks ordering and value ranges of a daily series
func validateSeries(name string, values []ProfileValue, allowZero bool) error {
	if len(values) == 0 {
		return fmt.Errorf("%s: empty series", name)
	}
	if values[0].TimeAsSeconds != 0 {
		return fmt.Errorf("%s: first entry at %ds, want 0", name, values[0].TimeAsSeconds)
	}
	for i, v := range values {
		if v.TimeAsSeconds < 0 || v.TimeAsSeconds >= SecondsPerDay {
			return fmt.Errorf("%s: offset %d out of range", name, v.TimeAsSeconds)
		}
		if i > 0 && v.TimeAsSeconds <= values[i-1].TimeAsSeconds {
			return fmt.Errorf("%s: offsets not strictly increasing at index %d", name, i)
		}
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) || v.Value < 0 || (!allowZero && v.Value == 0) {
			return fmt.Errorf("%s: invalid value %v at %s", name, v.Value, v.Time)
		}
	}
	return nil
}
