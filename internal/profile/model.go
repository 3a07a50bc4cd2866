// Package profile provides the profile model, its storage, and the profile
// lifecycle operations (start, update, visibility).
package profile

import (
	"errors"
	"time"
)

// Common errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrAlreadyStarted  = errors.New("profile already started")
	ErrProfileExists   = errors.New("profile already exists")
	ErrInvalidProfile  = errors.New("invalid profile fields")
)

// Profile represents a person who can be recommended to, and can browse, other profiles.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// Matching inputs
	Skills     []string `json:"skills"`
	Idea       string   `json:"idea"`
	LookingFor []string `json:"looking_for"`
	Slack      string   `json:"slack"`

	// Lifecycle: unstarted -> started -> completed, and independently hidden <-> visible.
	Started   bool `json:"started"`
	Completed bool `json:"completed"`
	Visible   bool `json:"visible"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View is the projection of a profile shown to other users.
// Email and lifecycle flags are private to the owner.
type View struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Skills     []string `json:"skills"`
	Idea       string   `json:"idea"`
	LookingFor []string `json:"looking_for"`
	Slack      string   `json:"slack"`
}

// View returns the public projection of the profile.
func (p *Profile) View() View {
	return View{
		ID:         p.ID,
		Name:       p.Name,
		Skills:     cloneStrings(p.Skills),
		Idea:       p.Idea,
		LookingFor: cloneStrings(p.LookingFor),
		Slack:      p.Slack,
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Skills = cloneStrings(p.Skills)
	c.LookingFor = cloneStrings(p.LookingFor)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
