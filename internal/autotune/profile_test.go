package autotune

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mrcode/nightscout-autotune/internal/insulin"
	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testClock = FixedClock{
	At:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	Zone: time.FixedZone("Europe/Vienna", 3600),
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() *models.Profile {
	return &models.Profile{
		ProfileName: "Default",
		DIA:         5,
		Units:       models.UnitMgdl,
		Timezone:    "Europe/Vienna",
		Basal: []models.ProfileValue{
			models.NewProfileValue(0, 0.5),
			models.NewProfileValue(5400, 0.8),
			models.NewProfileValue(43200, 1.23456),
		},
		Sens: []models.ProfileValue{
			models.NewProfileValue(0, 40),
			models.NewProfileValue(43200, 60),
		},
		CarbRatio: []models.ProfileValue{
			models.NewProfileValue(0, 10),
		},
		TargetLow:  []models.ProfileValue{models.NewProfileValue(0, 100)},
		TargetHigh: []models.ProfileValue{models.NewProfileValue(0, 120)},
	}
}

func testInsulin() insulin.Local {
	return insulin.New(insulin.RapidActing, 6, 0)
}

func newTestTuned(src SourceProfile, prefs MapPreferences) *TunedProfile {
	return New(src, testInsulin(), WithPreferences(prefs), WithClock(testClock), WithLogger(quietLogger()))
}

// invalidSource forces the validity predicate to fail
type invalidSource struct {
	*models.Profile
}

func (invalidSource) IsValid() bool { return false }

func TestNew_ValidProfile(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)

	require.True(t, tuned.Valid)
	assert.Equal(t, "Default", tuned.Name)

	assert.Equal(t, 0.5, tuned.Basal[0])
	assert.Equal(t, 0.5, tuned.Basal[1], "01:00 is before the 01:30 breakpoint")
	assert.Equal(t, 0.8, tuned.Basal[2])
	assert.Equal(t, 0.8, tuned.Basal[11])
	assert.Equal(t, 1.235, tuned.Basal[12], "rounded to 0.001")
	assert.Equal(t, 1.235, tuned.Basal[23])

	assert.InDelta(t, 50.0, tuned.ISF, 1e-9)
	assert.Equal(t, 10.0, tuned.IC)

	assert.Equal(t, 6.0, tuned.DIA())
	assert.Equal(t, 75, tuned.Peak())
	assert.Equal(t, [24]int{}, tuned.Untuned)
}

func TestNew_MmolProfileStoresISFInMgdl(t *testing.T) {
	src := testProfile()
	src.Units = models.UnitMmol
	src.Sens = []models.ProfileValue{models.NewProfileValue(0, 2.5)}

	tuned := newTestTuned(src, nil)

	require.True(t, tuned.Valid)
	assert.InDelta(t, 2.5*18.0182, tuned.ISF, 1e-9)
}

func TestNew_MultiSegmentAverageRounded(t *testing.T) {
	src := testProfile()
	src.CarbRatio = []models.ProfileValue{
		models.NewProfileValue(0, 8),
		models.NewProfileValue(25200, 11),
		models.NewProfileValue(61200, 9.5),
	}

	tuned := newTestTuned(src, nil)

	want := roundTo((8*25200+11*36000+9.5*25200)/86400.0, 2)
	assert.Equal(t, want, tuned.IC)
	assert.Equal(t, 3, tuned.ICSize())
	assert.Equal(t, 2, tuned.ISFSize())
}

func TestNew_InvalidProfile(t *testing.T) {
	tests := []struct {
		name string
		src  SourceProfile
	}{
		{"Injected invalid", invalidSource{testProfile()}},
		{"Zero DIA", func() SourceProfile { p := testProfile(); p.DIA = 0; return p }()},
		{"Empty basal", func() SourceProfile { p := testProfile(); p.Basal = nil; return p }()},
		{"Nil source", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuned := newTestTuned(tt.src, nil)

			assert.False(t, tuned.Valid)
			assert.Equal(t, [24]float64{}, tuned.Basal)
			assert.Equal(t, 0.0, tuned.ISF)
			assert.Equal(t, 0.0, tuned.IC)
			assert.Equal(t, 6.0, tuned.DIA(), "insulin values are copied regardless of validity")
		})
	}
}

func TestTunedProfile_UpdateProfileKeepsCachedState(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)
	tuned.Basal[3] = 0.65
	tuned.ISF = 48

	replacement := testProfile()
	replacement.Basal = []models.ProfileValue{models.NewProfileValue(0, 2.0)}
	replacement.Sens = []models.ProfileValue{models.NewProfileValue(0, 70)}
	tuned.UpdateProfile(replacement)

	assert.Equal(t, 0.65, tuned.Basal[3], "cached basal is not recomputed")
	assert.Equal(t, 48.0, tuned.ISF, "cached ISF is not recomputed")
	assert.Equal(t, 2.0, tuned.SourceBasalAt(3*3600), "live path reads the new source")
	assert.Equal(t, 70.0, tuned.AvgISF())

	tuned.UpdateProfile(nil)
	assert.Equal(t, 2.0, tuned.SourceBasalAt(0), "nil update is ignored")
}

func TestTunedProfile_ApplyTuning(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)
	tuned.Basal[3] = 0.9
	tuned.ISF = 55
	tuned.IC = 12

	require.NoError(t, tuned.ApplyTuning())

	assert.Equal(t, 0.9, tuned.SourceBasalAt(3*3600))
	assert.Equal(t, 55.0, tuned.AvgISF())
	assert.Equal(t, 12.0, tuned.AvgIC())
	assert.Equal(t, 1, tuned.ISFSize())
	assert.Equal(t, "Default", tuned.Source().Name())
}

func TestTunedProfile_HourlyBasalIsSnapshot(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)

	snapshot := tuned.HourlyBasal()
	snapshot[0] = 99

	assert.Equal(t, 0.5, tuned.Basal[0])
}

func TestTunedProfile_BasalAtUsesClockZone(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)

	// 11:30 UTC is 12:30 in the fixed +01:00 zone
	ts := time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC)
	assert.Equal(t, tuned.Basal[12], tuned.BasalAt(ts))
}

func TestTunedProfile_BasalAtIgnoresMinutes(t *testing.T) {
	tuned := newTestTuned(testProfile(), nil)
	zone := testClock.Location()

	rapid.Check(t, func(t *rapid.T) {
		h := rapid.IntRange(0, 23).Draw(t, "hour")
		m := rapid.IntRange(0, 59).Draw(t, "minute")
		s := rapid.IntRange(0, 59).Draw(t, "second")

		ts := time.Date(2024, 5, 17, h, m, s, 0, zone)
		want := roundTo(tuned.Source().BasalAt(h*3600), 3)
		if got := tuned.BasalAt(ts); got != want {
			t.Fatalf("BasalAt(%s) = %v, want %v", ts.Format(time.TimeOnly), got, want)
		}
	})
}
