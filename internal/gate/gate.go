// Package gate enforces the per-student assessment attempt limit. A student
// is identified by (email, date of birth); at the limit the student is
// blocked until an administrator resets the counter.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearview-college/enroll-portal/internal/records"
)

// DefaultAttemptLimit is the number of assessment attempts before blocking.
const DefaultAttemptLimit = 3

var (
	// ErrBlocked is terminal for the identity until an admin reset.
	ErrBlocked = errors.New("attempt limit reached")
	// ErrUnavailable wraps record-store failures. The gate fails closed: a
	// store error never passes as "new student", since that would let
	// transient failures bypass the attempt limit.
	ErrUnavailable = errors.New("record store unavailable")
)

type Gate struct {
	store records.Store
	limit int
	now   func() time.Time
}

func New(store records.Store, limit int) *Gate {
	if limit <= 0 {
		limit = DefaultAttemptLimit
	}
	return &Gate{store: store, limit: limit, now: time.Now}
}

func (g *Gate) Limit() int { return g.limit }

// Verdict is the gate's answer at registration time.
type Verdict struct {
	Student           records.Student `json:"student"`
	IsNewStudent      bool            `json:"is_new_student"`
	Blocked           bool            `json:"blocked"`
	AttemptsRemaining int             `json:"attempts_remaining"`
}

// ValidateOrRegister looks the identity up and registers it when absent.
// Returning students at the limit come back Blocked; callers must not start
// another assessment for them.
func (g *Gate) ValidateOrRegister(ctx context.Context, identity records.Identity) (Verdict, error) {
	identity = identity.Normalize()

	existing, err := g.store.FindByIdentity(ctx, identity.Email, identity.DateOfBirth)
	switch {
	case errors.Is(err, records.ErrNotFound):
		student := records.Student{
			ID:           uuid.NewString(),
			Identity:     identity,
			Status:       records.StatusRegistered,
			RegisteredAt: g.now().UTC(),
		}
		if err := g.store.Create(ctx, student); err != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Verdict{Student: student, IsNewStudent: true, AttemptsRemaining: g.limit}, nil
	case err != nil:
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if existing.AttemptCount >= g.limit {
		return Verdict{Student: existing, Blocked: true}, nil
	}
	return Verdict{Student: existing, AttemptsRemaining: g.limit - existing.AttemptCount}, nil
}

// Status re-reads the student's counter. Used to refuse a submission before
// any scoring happens.
func (g *Gate) Status(ctx context.Context, studentID string) (attemptCount int, blocked bool, err error) {
	s, err := g.store.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return 0, false, err
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.AttemptCount, s.AttemptCount >= g.limit, nil
}

// ConsumeAttempt spends one attempt for a successful submission, eligible or
// not. Refuses with ErrBlocked when the student is already at the limit.
func (g *Gate) ConsumeAttempt(ctx context.Context, studentID string) (newCount int, nowBlocked bool, err error) {
	count, blocked, err := g.Status(ctx, studentID)
	if err != nil {
		return 0, false, err
	}
	if blocked {
		return count, true, ErrBlocked
	}
	newCount, nowBlocked, err = g.store.IncrementAttempt(ctx, studentID, g.limit, g.now())
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return 0, false, err
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return newCount, nowBlocked, nil
}

// ResetAttempts is the explicit administrative unblock.
func (g *Gate) ResetAttempts(ctx context.Context, studentID string) error {
	if err := g.store.ResetAttempts(ctx, studentID); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
