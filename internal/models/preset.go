package models

import (
	"fmt"
	"time"

	"mindmail/internal/errs"
)

// TimePreset is a shortcut for picking a letter's delivery date.
type TimePreset string

const (
	PresetOneWeek     TimePreset = "one_week"
	PresetOneMonth    TimePreset = "one_month"
	PresetThreeMonths TimePreset = "three_months"
	PresetSixMonths   TimePreset = "six_months"
	PresetOneYear     TimePreset = "one_year"
	PresetFiveYears   TimePreset = "five_years"
	PresetCustom      TimePreset = "custom"
)

// PresetDisplay is how a preset is offered to the user.
type PresetDisplay struct {
	Preset      TimePreset `json:"preset"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

var presets = []PresetDisplay{
	{PresetOneWeek, "In 1 week", "A quick check-in with near-future you"},
	{PresetOneMonth, "In 1 month", "See how next month treats you"},
	{PresetThreeMonths, "In 3 months", "A seasonal reflection"},
	{PresetSixMonths, "In 6 months", "Your 6-month future self"},
	{PresetOneYear, "In 1 year", "A letter to next year's you"},
	{PresetFiveYears, "In 5 years", "A time capsule for future you"},
	{PresetCustom, "Custom...", "Pick your own special date"},
}

func Presets() []PresetDisplay {
	out := make([]PresetDisplay, len(presets))
	copy(out, presets)
	return out
}

func ParseTimePreset(s string) (TimePreset, error) {
	for _, d := range presets {
		if string(d.Preset) == s {
			return d.Preset, nil
		}
	}
	return "", fmt.Errorf("%w: unknown time preset %q", errs.ErrInvalidInput, s)
}

func (p TimePreset) Label() string {
	for _, d := range presets {
		if d.Preset == p {
			return d.Label
		}
	}
	return ""
}

// FutureDate is noon on base's day moved forward by the preset's span.
// PresetCustom returns noon on base's day.
func (p TimePreset) FutureDate(base time.Time) time.Time {
	noon := atNoon(base)
	switch p {
	case PresetOneWeek:
		return noon.AddDate(0, 0, 7)
	case PresetOneMonth:
		return addMonths(noon, 1)
	case PresetThreeMonths:
		return addMonths(noon, 3)
	case PresetSixMonths:
		return addMonths(noon, 6)
	case PresetOneYear:
		return addMonths(noon, 12)
	case PresetFiveYears:
		return addMonths(noon, 60)
	}
	return noon
}

// DefaultDeliveryDate is tomorrow at noon, the date a new letter starts with.
func DefaultDeliveryDate(now time.Time) time.Time {
	return atNoon(now).AddDate(0, 0, 1)
}
