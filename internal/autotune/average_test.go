package autotune

import (
	"testing"

	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAverageProfileValue(t *testing.T) {
	tests := []struct {
		name     string
		values   []models.ProfileValue
		expected float64
	}{
		{"Nil series", nil, 0},
		{"Empty series", []models.ProfileValue{}, 0},
		{"Single segment", []models.ProfileValue{models.NewProfileValue(0, 1.7)}, 1.7},
		{"Noon split", []models.ProfileValue{
			models.NewProfileValue(0, 1.0),
			models.NewProfileValue(43200, 3.0),
		}, 2.0},
		{"Uneven segments", []models.ProfileValue{
			models.NewProfileValue(0, 1.0),
			models.NewProfileValue(21600, 2.0),
		}, 1.75},
		{"Three segments", []models.ProfileValue{
			models.NewProfileValue(0, 0.6),
			models.NewProfileValue(28800, 1.2),
			models.NewProfileValue(72000, 0.9),
		}, (0.6*28800 + 1.2*43200 + 0.9*14400) / 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AverageProfileValue(tt.values), 1e-12)
		})
	}
}

func TestAverageProfileValue_SingleSegmentExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(0.01, 500).Draw(t, "value")
		got := AverageProfileValue([]models.ProfileValue{models.NewProfileValue(0, v)})
		if got != v {
			t.Fatalf("AverageProfileValue([(0, %v)]) = %v, want exactly %v", v, got, v)
		}
	})
}

func TestAverageProfileValue_ConstantSeries(t *testing.T) {
	values := []models.ProfileValue{
		models.NewProfileValue(0, 2.5),
		models.NewProfileValue(3600, 2.5),
		models.NewProfileValue(50400, 2.5),
	}
	assert.InDelta(t, 2.5, AverageProfileValue(values), 1e-12)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.235, roundTo(1.23456, 3))
	assert.Equal(t, 50.13, roundTo(50.1251, 2))
	assert.Equal(t, 0.0, roundTo(0.0004, 3))
}
