package records

import (
	"strings"
	"time"

	"github.com/clearview-college/enroll-portal/internal/lln"
)

// Identity is the natural key for a student: (email, date of birth). Students
// attempt the assessment before any generated ID exists, so dedup runs on
// identity, never on ID.
type Identity struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

// Normalize lowercases and trims the key fields so lookups are stable across
// re-typed registrations.
func (i Identity) Normalize() Identity {
	i.FirstName = strings.TrimSpace(i.FirstName)
	i.LastName = strings.TrimSpace(i.LastName)
	i.Email = strings.ToLower(strings.TrimSpace(i.Email))
	i.DateOfBirth = strings.TrimSpace(i.DateOfBirth)
	return i
}

func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Student statuses, in lifecycle order.
const (
	StatusRegistered = "registered"
	StatusAssessed   = "assessed"
	StatusEnrolled   = "enrolled"
)

type Student struct {
	ID            string     `json:"id"`
	Identity      Identity   `json:"identity"`
	FolderID      string     `json:"folder_id"`
	AttemptCount  int        `json:"attempt_count"`
	IsBlocked     bool       `json:"is_blocked"`
	Status        string     `json:"status"`
	RegisteredAt  time.Time  `json:"registered_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// Assessment is one scored LLN submission. Append-only; retakes append new
// rows rather than overwriting.
type Assessment struct {
	ID        string          `json:"id"`
	StudentID string          `json:"student_id"`
	Result    lln.ScoreResult `json:"result"`
	ReportKey string          `json:"report_key,omitempty"`
}

// Enrollment is the final submitted enrollment. Payload is the full draft as
// JSON; the record store treats it as opaque.
type Enrollment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Payload     []byte    `json:"payload"`
	FormKey     string    `json:"form_key,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
