package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearview-college/enroll-portal/internal/records"
)

// fakeStore is an in-memory records.Store with injectable failures.
type fakeStore struct {
	students map[string]records.Student
	fail     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{students: map[string]records.Student{}}
}

func (f *fakeStore) FindByIdentity(_ context.Context, email, dob string) (records.Student, error) {
	if f.fail != nil {
		return records.Student{}, f.fail
	}
	for _, s := range f.students {
		if s.Identity.Email == email && s.Identity.DateOfBirth == dob {
			return s, nil
		}
	}
	return records.Student{}, records.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, s records.Student) error {
	if f.fail != nil {
		return f.fail
	}
	f.students[s.ID] = s
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (records.Student, error) {
	if f.fail != nil {
		return records.Student{}, f.fail
	}
	s, ok := f.students[id]
	if !ok {
		return records.Student{}, records.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) List(context.Context, bool) ([]records.Student, error) { return nil, nil }

func (f *fakeStore) SetStatus(_ context.Context, id, status string) error {
	s := f.students[id]
	s.Status = status
	f.students[id] = s
	return nil
}

func (f *fakeStore) SetFolder(_ context.Context, id, folderID string) error {
	s := f.students[id]
	s.FolderID = folderID
	f.students[id] = s
	return nil
}

func (f *fakeStore) IncrementAttempt(_ context.Context, id string, limit int, at time.Time) (int, bool, error) {
	if f.fail != nil {
		return 0, false, f.fail
	}
	s, ok := f.students[id]
	if !ok {
		return 0, false, records.ErrNotFound
	}
	s.AttemptCount++
	s.IsBlocked = s.AttemptCount >= limit
	t := at
	s.LastAttemptAt = &t
	f.students[id] = s
	return s.AttemptCount, s.IsBlocked, nil
}

func (f *fakeStore) ResetAttempts(_ context.Context, id string) error {
	if f.fail != nil {
		return f.fail
	}
	s, ok := f.students[id]
	if !ok {
		return records.ErrNotFound
	}
	s.AttemptCount = 0
	s.IsBlocked = false
	f.students[id] = s
	return nil
}

func (f *fakeStore) AppendAssessment(context.Context, records.Assessment) error { return nil }
func (f *fakeStore) ListAssessments(context.Context, string) ([]records.Assessment, error) {
	return nil, nil
}
func (f *fakeStore) AppendEnrollment(context.Context, records.Enrollment) error { return nil }
func (f *fakeStore) ListEnrollments(context.Context) ([]records.Enrollment, error) {
	return nil, nil
}

var identity = records.Identity{
	FirstName: "Ana", LastName: "Reyes",
	Email: "Ana@Example.com", DateOfBirth: "1995-04-02",
}

func TestRegisterNewStudent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, 3)

	v, err := g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNewStudent || v.Blocked {
		t.Fatalf("verdict %+v, want new unblocked student", v)
	}
	if v.AttemptsRemaining != 3 {
		t.Fatalf("attempts remaining = %d, want 3", v.AttemptsRemaining)
	}
	if v.Student.Identity.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", v.Student.Identity.Email)
	}
	if v.Student.ID == "" {
		t.Fatal("student was not assigned an id")
	}
}

func TestReturningStudentMatchedByIdentity(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, 3)

	first, err := g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	// Same email with different casing and padding is the same student.
	again, err := g.ValidateOrRegister(ctx, records.Identity{
		FirstName: "Ana", LastName: "Reyes",
		Email: "  ANA@example.com ", DateOfBirth: "1995-04-02",
	})
	if err != nil {
		t.Fatal(err)
	}
	if again.IsNewStudent {
		t.Fatal("returning identity treated as new student")
	}
	if again.Student.ID != first.Student.ID {
		t.Fatal("identity match resolved to a different student")
	}
}

func TestThirdAttemptBlocks(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, 3)

	v, err := g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	id := v.Student.ID

	for i := 1; i <= 2; i++ {
		count, blocked, err := g.ConsumeAttempt(ctx, id)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if count != i || blocked {
			t.Fatalf("attempt %d: count=%d blocked=%v", i, count, blocked)
		}
	}

	count, blocked, err := g.ConsumeAttempt(ctx, id)
	if err != nil {
		t.Fatalf("third attempt must still succeed: %v", err)
	}
	if count != 3 || !blocked {
		t.Fatalf("third attempt: count=%d blocked=%v, want 3/true", count, blocked)
	}

	// A fourth submission is refused before anything happens.
	if _, _, err := g.ConsumeAttempt(ctx, id); !errors.Is(err, ErrBlocked) {
		t.Fatalf("fourth attempt: err=%v, want ErrBlocked", err)
	}
	if got := store.students[id].AttemptCount; got != 3 {
		t.Fatalf("refused attempt still incremented the counter to %d", got)
	}

	// Registration now reports the student as blocked.
	v, err = g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Blocked || v.AttemptsRemaining != 0 {
		t.Fatalf("verdict %+v, want blocked with no attempts", v)
	}
}

func TestGateFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, 3)

	store.fail = errors.New("connection refused")
	if _, err := g.ValidateOrRegister(ctx, identity); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("store failure must surface as ErrUnavailable, got %v", err)
	}

	store.fail = nil
	v, err := g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	store.fail = errors.New("connection refused")
	if _, _, err := g.ConsumeAttempt(ctx, v.Student.ID); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("consume on failing store: %v, want ErrUnavailable", err)
	}
	if err := g.ResetAttempts(ctx, v.Student.ID); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("reset on failing store: %v, want ErrUnavailable", err)
	}
}

func TestAdminResetUnblocks(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, 2)

	v, err := g.ValidateOrRegister(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}
	id := v.Student.ID
	for i := 0; i < 2; i++ {
		if _, _, err := g.ConsumeAttempt(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if _, blocked, _ := g.Status(ctx, id); !blocked {
		t.Fatal("student should be blocked at the limit")
	}

	if err := g.ResetAttempts(ctx, id); err != nil {
		t.Fatal(err)
	}
	count, blocked, err := g.Status(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 || blocked {
		t.Fatalf("after reset: count=%d blocked=%v", count, blocked)
	}
	if _, _, err := g.ConsumeAttempt(ctx, id); err != nil {
		t.Fatalf("attempt after reset refused: %v", err)
	}
}

func TestUnknownStudentIsNotFound(t *testing.T) {
	ctx := context.Background()
	g := New(newFakeStore(), 3)
	if _, _, err := g.Status(ctx, "nope"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("status: %v, want ErrNotFound", err)
	}
	if err := g.ResetAttempts(ctx, "nope"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("reset: %v, want ErrNotFound", err)
	}
}

func TestZeroLimitFallsBackToDefault(t *testing.T) {
	g := New(newFakeStore(), 0)
	if g.Limit() != DefaultAttemptLimit {
		t.Fatalf("limit = %d, want %d", g.Limit(), DefaultAttemptLimit)
	}
}
