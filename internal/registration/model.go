// Package registration handles event sign-ups: registrant intake, email
// verification, and resume upload URLs.
package registration

import (
	"errors"
	"time"
)

// Common errors for registration operations.
var (
	ErrRegistrantNotFound = errors.New("registrant not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidRegistrant  = errors.New("invalid registration")
)

// Registrant is a person signed up for the event.
type Registrant struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Degree             string    `json:"degree"`
	HackathonsAttended int       `json:"hackathons_attended"`
	ResumeKey          string    `json:"resume_key,omitempty"`
	Ethnicity          string    `json:"ethnicity,omitempty"`
	Gender             string    `json:"gender,omitempty"`
	Verified           bool      `json:"verified"`
	CreatedAt          time.Time `json:"created_at"`
}

// Request is the registration form.
type Request struct {
	FullName           string `json:"full_name" validate:"required,max=200"`
	Email              string `json:"email" validate:"required,email,max=254"`
	Degree             string `json:"degree" validate:"required,max=200"`
	HackathonsAttended int    `json:"hackathons_attended" validate:"gte=0,lte=1000"`
	Ethnicity          string `json:"ethnicity" validate:"max=100"`
	Gender             string `json:"gender" validate:"max=100"`
}
