package models

import "strings"

// Glucose unit identifiers as they appear in Nightscout profile documents
const (
	UnitMgdl = "mg/dl"
	UnitMmol = "mmol"
)

// NormalizeUnits maps the unit spellings seen in the wild ("mg/dL", "mmol/L",
// "mmol") to the Nightscout profile identifiers. Unknown values yield "".
func NormalizeUnits(units string) string {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "mg/dl", "mgdl":
		return UnitMgdl
	case "mmol", "mmol/l", "mmoll":
		return UnitMmol
	default:
		return ""
	}
}

// DisplayUnits returns the human-readable spelling used by the settings file
func DisplayUnits(units string) string {
	if NormalizeUnits(units) == UnitMmol {
		return "mmol/L"
	}
	return "mg/dL"
}

// FromMgdlToUnits converts an internal mg/dL value to the given profile units
func FromMgdlToUnits(mgdl float64, units string) float64 {
	if NormalizeUnits(units) == UnitMmol {
		return ToMmol(mgdl)
	}
	return mgdl
}

// ToMgdlFromUnits converts a value expressed in the given profile units to mg/dL
func ToMgdlFromUnits(value float64, units string) float64 {
	if NormalizeUnits(units) == UnitMmol {
		return ToMgdl(value)
	}
	return value
}

// MgdlPerMmol is the glucose conversion factor between mg/dL and mmol/L
const MgdlPerMmol = 18.0182

// ToMmol converts a mg/dL value to mmol/L
func ToMmol(mgdl float64) float64 {
	return mgdl / MgdlPerMmol
}

// ToMgdl converts a mmol/L value to mg/dL
func ToMgdl(mmol float64) float64 {
	return mmol * MgdlPerMmol
}
