package autotune

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mrcode/nightscout-autotune/internal/insulin"
	"github.com/mrcode/nightscout-autotune/internal/models"
)

// ErrExport wraps every serialization failure of a tuned profile
var ErrExport = errors.New("profile export failed")

// isoUTCLayout is the startDate format used by Nightscout profile stores
const isoUTCLayout = "2006-01-02T15:04:05.000Z"

// OrefProfile is the oref0 autotune input profile
type OrefProfile struct {
	Name              string         `json:"name"`
	Min5mCarbImpact   float64        `json:"min_5m_carbimpact"`
	DIA               float64        `json:"dia"`
	Curve             string         `json:"curve,omitempty"`
	UseCustomPeakTime *bool          `json:"useCustomPeakTime,omitempty"`
	InsulinPeakTime   *int           `json:"insulinPeakTime,omitempty"`
	BasalProfile      []OrefBasal    `json:"basalprofile"`
	ISFProfile        OrefISFProfile `json:"isfProfile"`
	CarbRatio         float64        `json:"carb_ratio"`
	AutosensMax       float64        `json:"autosens_max"`
	AutosensMin       float64        `json:"autosens_min"`
	Units             string         `json:"units"`
	Timezone          string         `json:"timezone"`
}

// OrefBasal is one hourly entry of the oref0 basal profile
type OrefBasal struct {
	Start   string  `json:"start"` // "HH:00:00"
	Minutes int     `json:"minutes"`
	Rate    float64 `json:"rate"`
}

// OrefISFProfile holds the oref0 sensitivity schedule
type OrefISFProfile struct {
	Sensitivities []OrefSensitivity `json:"sensitivities"`
}

// OrefSensitivity is one entry of the oref0 sensitivity schedule
type OrefSensitivity struct {
	I           int     `json:"i"`
	Start       string  `json:"start"`
	Sensitivity float64 `json:"sensitivity"`
	Offset      int     `json:"offset"`
	X           int     `json:"x"`
	EndOffset   int     `json:"endoffset"`
}

// MarshalNightscout serializes the tuning state into the Nightscout pure
// profile schema. Units, timezone and targets come from the backing source.
func (p *TunedProfile) MarshalNightscout() ([]byte, error) {
	data, err := json.Marshal(p.nightscoutDocument())
	if err != nil {
		return nil, fmt.Errorf("%w: encoding nightscout profile: %w", ErrExport, err)
	}
	return data, nil
}

// Data returns the Nightscout export parsed back into a profile, or nil when
// the export fails. The failure is logged.
func (p *TunedProfile) Data() *models.Profile {
	np, err := p.exportProfile()
	if err != nil {
		p.logger.Error("nightscout export failed", "profile", p.Name, "err", err)
		return nil
	}
	return np
}

func (p *TunedProfile) exportProfile() (*models.Profile, error) {
	data, err := p.MarshalNightscout()
	if err != nil {
		return nil, err
	}
	np, err := models.ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	np.ProfileName = p.Name
	return np, nil
}

func (p *TunedProfile) nightscoutDocument() *models.Profile {
	doc := p.source.PureJSON()
	units := p.source.GetUnits()

	doc.DIA = p.dia
	doc.Units = units
	doc.Sens = []models.ProfileValue{models.NewProfileValue(0, models.FromMgdlToUnits(p.ISF, units))}
	doc.CarbRatio = []models.ProfileValue{models.NewProfileValue(0, p.IC)}
	doc.Basal = make([]models.ProfileValue, 24)
	for h := 0; h < 24; h++ {
		doc.Basal[h] = models.NewProfileValue(h*3600, p.Basal[h])
	}
	return doc
}

// MarshalOref serializes the profile into the oref0 autotune input schema.
// Basal rates and the averaged ISF/IC are read live from the backing source.
func (p *TunedProfile) MarshalOref() ([]byte, error) {
	data, err := encodeIndented(p.orefDocument())
	if err != nil {
		return nil, fmt.Errorf("%w: encoding oref profile: %w", ErrExport, err)
	}
	return data, nil
}

// OrefJSON returns the oref0 export, or "" when the export fails. An empty
// result means the round failed, never an empty profile.
func (p *TunedProfile) OrefJSON() string {
	data, err := p.MarshalOref()
	if err != nil {
		p.logger.Error("oref export failed", "profile", p.Name, "err", err)
		return ""
	}
	return string(data)
}

func (p *TunedProfile) orefDocument() *OrefProfile {
	units := p.outputUnits()
	doc := &OrefProfile{
		Name:            p.Name,
		Min5mCarbImpact: p.positiveDouble(models.KeyMin5mCarbImpact, models.DefaultMin5mCarbImpact),
		DIA:             p.dia,
		CarbRatio:       p.AvgIC(),
		AutosensMax:     p.parsedDouble(models.KeyAutosensMax, models.DefaultAutosensMax, func(v float64) bool { return v >= 1 }),
		AutosensMin:     p.parsedDouble(models.KeyAutosensMin, models.DefaultAutosensMin, func(v float64) bool { return v > 0 && v <= 1 }),
		Units:           units,
		Timezone:        p.clock.Location().String(),
	}

	if p.insulin != nil {
		freePeak := p.prefs.GetInt(models.KeyInsulinPeak, models.DefaultFreePeakMinutes)
		curve := insulin.ResolveCurve(p.insulin.Type(), freePeak)
		doc.Curve = curve.Name
		if curve.UseCustomPeakTime {
			useCustom := true
			peak := curve.PeakTime
			doc.UseCustomPeakTime = &useCustom
			doc.InsulinPeakTime = &peak
		}
	}

	doc.BasalProfile = make([]OrefBasal, 24)
	for h := 0; h < 24; h++ {
		doc.BasalProfile[h] = OrefBasal{
			Start:   fmt.Sprintf("%02d:00:00", h),
			Minutes: h * 60,
			Rate:    p.SourceBasalAt(h * 3600),
		}
	}

	doc.ISFProfile.Sensitivities = []OrefSensitivity{{
		I:           0,
		Start:       "00:00:00",
		Sensitivity: models.FromMgdlToUnits(p.AvgISF(), units),
		Offset:      0,
		X:           0,
		EndOffset:   1440,
	}}

	return doc
}

// outputUnits returns the configured display units, falling back to the source units.
// The oref sensitivity is always expressed in these units.
func (p *TunedProfile) outputUnits() string {
	if u := models.NormalizeUnits(p.prefs.GetString(models.KeyUnits, "")); u != "" {
		return u
	}
	return p.source.GetUnits()
}

// positiveDouble reads a numeric preference, replacing non-positive values with def
func (p *TunedProfile) positiveDouble(key string, def float64) float64 {
	v := p.prefs.GetDouble(key, def)
	if v <= 0 {
		return def
	}
	return v
}

// parsedDouble reads a text preference as float64. Unparsable values and
// values rejected by ok fall back to def.
func (p *TunedProfile) parsedDouble(key, def string, ok func(float64) bool) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.prefs.GetString(key, def)), 64)
	if err != nil || !ok(v) {
		v, _ = strconv.ParseFloat(def, 64)
	}
	return v
}

// MarshalProfileStore wraps the backing source profile into a Nightscout
// profile store under TunedProfileName, stamped with the current time.
// Tuned values only appear after ApplyTuning has swapped them into the source.
func (p *TunedProfile) MarshalProfileStore() ([]byte, error) {
	store := models.ProfileStore{
		DefaultProfile: TunedProfileName,
		Store:          map[string]*models.Profile{TunedProfileName: p.source.PureJSON()},
		StartDate:      p.clock.Now().UTC().Format(isoUTCLayout),
	}
	data, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding profile store: %w", ErrExport, err)
	}
	return data, nil
}

// ProfileStore returns the profile store container, or nil when the export
// fails. The failure is logged.
func (p *TunedProfile) ProfileStore() *models.ProfileStore {
	data, err := p.MarshalProfileStore()
	if err != nil {
		p.logger.Error("profile store export failed", "profile", p.Name, "err", err)
		return nil
	}
	store, err := models.ParseProfileStore(data, TunedProfileName)
	if err != nil {
		p.logger.Error("profile store export failed", "profile", p.Name, "err", err)
		return nil
	}
	return store
}

// encodeIndented renders v as two-space indented JSON without HTML or slash escaping
func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return bytes.ReplaceAll(out, []byte(`\/`), []byte("/")), nil
}
