package records

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the identity or ID has no record. Callers must treat
	// any other error as "store unavailable", never as "new student".
	ErrNotFound = errors.New("records: not found")
)

// Store is the system of record. Implementations: SQLStore (sqlite/postgres)
// and SheetStore (xlsx workbook).
type Store interface {
	FindByIdentity(ctx context.Context, email, dateOfBirth string) (Student, error)
	Create(ctx context.Context, s Student) error
	Get(ctx context.Context, id string) (Student, error)
	List(ctx context.Context, onlyBlocked bool) ([]Student, error)
	SetStatus(ctx context.Context, id, status string) error
	SetFolder(ctx context.Context, id, folderID string) error

	// IncrementAttempt bumps the attempt counter by exactly one as a single
	// atomic store-side update, re-reading the count at write time. Returns
	// the new count and whether the student is now at or past limit.
	IncrementAttempt(ctx context.Context, id string, limit int, at time.Time) (int, bool, error)
	// ResetAttempts is the administrative unblock: count back to zero,
	// registration date and folder untouched.
	ResetAttempts(ctx context.Context, id string) error

	AppendAssessment(ctx context.Context, a Assessment) error
	ListAssessments(ctx context.Context, studentID string) ([]Assessment, error)
	AppendEnrollment(ctx context.Context, e Enrollment) error
	ListEnrollments(ctx context.Context) ([]Enrollment, error)
}
