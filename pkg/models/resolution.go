package models

import "fmt"

// Resolution is a timeline zoom level.
type Resolution string

const (
	ResolutionDays      Resolution = "days"
	ResolutionWeeks     Resolution = "weeks"
	ResolutionMonths    Resolution = "months"
	ResolutionQuarters  Resolution = "quarters"
	ResolutionSemesters Resolution = "semesters"
	ResolutionYear      Resolution = "year"
)

// ZoomAuto is the pseudo-resolution that asks for an auto-fit.
const ZoomAuto = "auto"

// Resolutions lists every resolution ordered from finest to coarsest.
var Resolutions = []Resolution{
	ResolutionDays,
	ResolutionWeeks,
	ResolutionMonths,
	ResolutionQuarters,
	ResolutionSemesters,
	ResolutionYear,
}

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	for _, known := range Resolutions {
		if r == known {
			return true
		}
	}
	return false
}

// ParseResolution converts s into a Resolution.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown resolution %q, must be one of: days, weeks, months, quarters, semesters, year", s)
	}
	return r, nil
}
