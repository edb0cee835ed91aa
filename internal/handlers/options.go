package handlers

import (
	"time"

	"mindmail/internal/validation"
)

// Options are the request-shaping settings shared by the content handlers.
type Options struct {
	// Location interprets YYYY-MM-DD path parameters. Nil means time.Local.
	Location *time.Location
	// StripMarkup removes HTML from free text before it is validated.
	StripMarkup bool
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) clean(text string) string {
	if !o.StripMarkup {
		return text
	}
	return validation.StripMarkup(text)
}
