package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidParticipant = errors.New("invalid participant")

var validate = validator.New()

// Participant is the name/email a visitor provides before creating a meeting.
// It lives in the visitor's session only.
type Participant struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
}

func NewParticipant(name, email string) Participant {
	return Participant{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
	}
}

// Complete reports whether both name and email are present.
func (p Participant) Complete() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Email) != ""
}

// Validate checks the participant fields. The returned error wraps
// ErrInvalidParticipant and, when available, validator.ValidationErrors.
func (p Participant) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidParticipant, err)
	}
	return nil
}
