package models

import (
	"fmt"

	"mindmail/internal/errs"
)

// Mood is the overall feeling recorded for a day.
type Mood string

const (
	MoodAwesome   Mood = "awesome"
	MoodJustFine  Mood = "just_fine"
	MoodExciting  Mood = "exciting"
	MoodBoring    Mood = "boring"
	MoodStressful Mood = "stressful"
	MoodMixed     Mood = "mixed"
)

// MoodDisplay is how a mood is shown to the user.
type MoodDisplay struct {
	Mood  Mood   `json:"mood"`
	Emoji string `json:"emoji"`
	Label string `json:"label"`
}

// Order matters: it is the order moods are offered in.
var moods = []MoodDisplay{
	{MoodAwesome, "😊", "Awesome"},
	{MoodJustFine, "😌", "Just fine"},
	{MoodExciting, "🎉", "Exciting"},
	{MoodBoring, "😴", "Boring"},
	{MoodStressful, "😰", "Stressful"},
	{MoodMixed, "💭", "Mixed"},
}

// Moods returns the display table for every mood.
func Moods() []MoodDisplay {
	out := make([]MoodDisplay, len(moods))
	copy(out, moods)
	return out
}

func (m Mood) display() (MoodDisplay, bool) {
	for _, d := range moods {
		if d.Mood == m {
			return d, true
		}
	}
	return MoodDisplay{}, false
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	_, ok := m.display()
	return ok
}

func (m Mood) Emoji() string {
	d, _ := m.display()
	return d.Emoji
}

func (m Mood) Label() string {
	d, _ := m.display()
	return d.Label
}

// ParseMood accepts either the identifier ("just_fine") or the emoji.
func ParseMood(s string) (Mood, error) {
	for _, d := range moods {
		if string(d.Mood) == s || d.Emoji == s {
			return d.Mood, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mood %q", errs.ErrInvalidInput, s)
}

func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown mood %q", string(m))
	}
	return []byte(m), nil
}

func (m *Mood) UnmarshalText(b []byte) error {
	parsed, err := ParseMood(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
