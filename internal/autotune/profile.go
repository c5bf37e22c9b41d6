// Package autotune holds the tuned-profile model that an autotune run mutates
// round over round, and its Nightscout and oref0 exports.
package autotune

import (
	"log/slog"
	"time"

	"github.com/mrcode/nightscout-autotune/internal/models"
)

// TunedProfileName is the store key and display label of an exported tuned profile
const TunedProfileName = "Tuned"

// TunedProfile is the working profile of a tuning session.
//
// Basal, ISF and IC are the tuning state: they are set from the source at
// construction and afterwards only written by the optimizer. The backing
// source profile is read live by the oref export (basal, averaged ISF/IC)
// and as metadata by the Nightscout export. The two paths are allowed to
// diverge until ApplyTuning or UpdateProfile swaps the source.
type TunedProfile struct {
	Name    string
	Basal   [24]float64 // U/h per clock hour, 0.001 precision
	Untuned [24]int     // Per-hour count of rounds the optimizer left an hour untuned
	ISF     float64     // mg/dL per U
	IC      float64     // g per U
	Valid   bool        // Source passed validation at construction
	From    time.Time   // Start of the tuning window

	dia  float64
	peak int

	source  SourceProfile
	insulin Insulin
	prefs   Preferences
	clock   Clock
	logger  *slog.Logger
}

// New creates a TunedProfile from a source profile and insulin model. An
// invalid (or nil) source yields Valid=false with zero Basal/ISF/IC; no error
// is returned and callers must check Valid.
func New(src SourceProfile, ins Insulin, opts ...Option) *TunedProfile {
	p := &TunedProfile{
		prefs:  MapPreferences{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if src == nil {
		src = &models.Profile{}
	}
	p.source = src
	p.insulin = ins
	p.Name = src.Name()
	p.Valid = src.IsValid()

	if p.Valid {
		for h := 0; h < 24; h++ {
			p.Basal[h] = roundTo(src.BasalAt(h*3600), 3)
		}
		p.IC = p.AvgIC()
		p.ISF = p.AvgISF()
	} else {
		p.logger.Warn("source profile is invalid, tuned values left at zero", "profile", p.Name)
	}

	if ins != nil {
		p.dia = ins.DIA()
		p.peak = ins.Peak()
	}

	return p
}

// DIA returns the duration of insulin action copied at construction
func (p *TunedProfile) DIA() float64 {
	return p.dia
}

// Peak returns the insulin peak time in minutes copied at construction
func (p *TunedProfile) Peak() int {
	return p.peak
}

// Source returns the backing source profile
func (p *TunedProfile) Source() SourceProfile {
	return p.source
}

// UpdateProfile swaps the backing source profile. Basal, ISF and IC are not
// recomputed.
func (p *TunedProfile) UpdateProfile(src SourceProfile) {
	if src == nil {
		return
	}
	p.source = src
}

// ApplyTuning replaces the backing source with the Nightscout export of the
// current tuning state, so live reads and metadata exports see it.
func (p *TunedProfile) ApplyTuning() error {
	np, err := p.exportProfile()
	if err != nil {
		return err
	}
	p.UpdateProfile(np)
	return nil
}

// HourlyBasal returns a snapshot of the cached hourly basal
func (p *TunedProfile) HourlyBasal() [24]float64 {
	return p.Basal
}

// BasalAt returns the cached basal for the local clock hour of t
func (p *TunedProfile) BasalAt(t time.Time) float64 {
	return p.Basal[t.In(p.clock.Location()).Hour()]
}

// SourceBasalAt returns the live source basal at the given second of the day
func (p *TunedProfile) SourceBasalAt(secondsFromMidnight int) float64 {
	return p.source.BasalAt(secondsFromMidnight)
}

// AvgISF returns the live averaged ISF of the source in mg/dL: the single
// value verbatim, otherwise the time-weighted average rounded to 0.01.
func (p *TunedProfile) AvgISF() float64 {
	return averageSeries(p.source.ISFMgdlValues())
}

// AvgIC returns the live averaged IC of the source, same rules as AvgISF
func (p *TunedProfile) AvgIC() float64 {
	return averageSeries(p.source.ICValues())
}

// ISFSize returns the number of ISF segments in the source
func (p *TunedProfile) ISFSize() int {
	return len(p.source.ISFMgdlValues())
}

// ICSize returns the number of IC segments in the source
func (p *TunedProfile) ICSize() int {
	return len(p.source.ICValues())
}

func averageSeries(values []models.ProfileValue) float64 {
	if len(values) == 1 {
		return values[0].Value
	}
	return roundTo(AverageProfileValue(values), 2)
}
