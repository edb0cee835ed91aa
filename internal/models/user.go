package models

import (
	"time"

	"mindmail/internal/validation"
)

// User is the person keeping the journal. It is created once during
// onboarding and replaced wholesale if saved again.
type User struct {
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewUser validates name and stamps the creation time.
func NewUser(name string, now time.Time) (User, error) {
	clean, err := validation.ValidateName(name)
	if err != nil {
		return User{}, err
	}
	return User{Name: clean, CreatedAt: now}, nil
}
