package validation

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// StripMarkup removes every HTML tag from text and leaves plain characters,
// so "<b>hi</b> & bye" becomes "hi & bye".
func StripMarkup(text string) string {
	return html.UnescapeString(strictPolicy.Sanitize(text))
}
