// Package validation trims, length-checks and filters free text and personal
// names before they reach the entity constructors.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"mindmail/internal/errs"
)

const (
	// MaxTextLength bounds every journal text field.
	MaxTextLength = 140
	MinNameLength = 1
	MaxNameLength = 50
)

// Reason identifies why a value was rejected.
type Reason int

const (
	EmptyText Reason = iota + 1
	TextTooLong
	EmptyName
	NameTooShort
	NameTooLong
	InvalidCharacters
)

var reasonNames = map[Reason]string{
	EmptyText:         "empty_text",
	TextTooLong:       "text_too_long",
	EmptyName:         "empty_name",
	NameTooShort:      "name_too_short",
	NameTooLong:       "name_too_long",
	InvalidCharacters: "invalid_characters",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Error is a field-level validation failure.
type Error struct {
	Reason Reason
	Max    int // set for TextTooLong
}

func (e *Error) Error() string {
	switch e.Reason {
	case EmptyText:
		return "This field cannot be empty"
	case TextTooLong:
		return fmt.Sprintf("Text is too long (max %d characters)", e.Max)
	case EmptyName:
		return "Please enter your name"
	case NameTooShort:
		return "Name is too short"
	case NameTooLong:
		return fmt.Sprintf("Name is too long (max %d characters)", MaxNameLength)
	case InvalidCharacters:
		return "Name contains invalid characters"
	}
	return "invalid input"
}

// Unwrap lets callers match any validation failure with errs.ErrInvalidInput.
func (e *Error) Unwrap() error { return errs.ErrInvalidInput }

// HasReason reports whether err is a validation Error with the given reason.
func HasReason(err error, r Reason) bool {
	var ve *Error
	if !errors.As(err, &ve) {
		return false
	}
	return ve.Reason == r
}

// ValidateText trims raw, requires at least one character and at most
// maxLength, and strips control characters other than line feeds.
func ValidateText(raw string, maxLength int) (string, error) {
	return ValidateTextRange(raw, 1, maxLength)
}

// ValidateTextRange is ValidateText with an explicit lower bound. A minLength
// of zero accepts empty input.
func ValidateTextRange(raw string, minLength, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	if minLength >= 1 && n == 0 {
		return "", &Error{Reason: EmptyText}
	}
	if n > maxLength {
		return "", &Error{Reason: TextTooLong, Max: maxLength}
	}

	sanitized := StripControl(trimmed)
	if minLength >= 1 && utf8.RuneCountInString(sanitized) < minLength {
		return "", &Error{Reason: EmptyText}
	}
	return sanitized, nil
}

// ValidateName trims raw and accepts only letters, spaces and tabs, hyphens
// and apostrophes, 1 to 50 characters long.
func ValidateName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return "", &Error{Reason: EmptyName}
	case n < MinNameLength:
		return "", &Error{Reason: NameTooShort}
	case n > MaxNameLength:
		return "", &Error{Reason: NameTooLong}
	}
	for _, r := range trimmed {
		if !isNameRune(r) {
			return "", &Error{Reason: InvalidCharacters}
		}
	}
	return trimmed, nil
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Zs, r) || r == '\t' || r == '-' || r == '\''
}

// StripControl removes every Unicode control character except '\n'.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// CharacterCount is the trimmed length of text as shown to the user.
func CharacterCount(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// RemainingCharacters never goes below zero.
func RemainingCharacters(text string, maxLength int) int {
	return max(0, maxLength-CharacterCount(text))
}
