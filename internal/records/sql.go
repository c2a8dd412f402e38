package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/clearview-college/enroll-portal/internal/lln"
)

// SQLStore keeps records in sqlite or postgres. Composite payloads (section
// scores, enrollment drafts) live in JSON columns; timestamps are unix
// seconds.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const studentCols = `id, first_name, last_name, email, date_of_birth, folder_id,
	attempt_count, is_blocked, status, registered_at, last_attempt_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	var blocked int
	var registered int64
	var lastAttempt sql.NullInt64
	err := row.Scan(&s.ID, &s.Identity.FirstName, &s.Identity.LastName,
		&s.Identity.Email, &s.Identity.DateOfBirth, &s.FolderID,
		&s.AttemptCount, &blocked, &s.Status, &registered, &lastAttempt)
	if err != nil {
		return Student{}, err
	}
	s.IsBlocked = blocked != 0
	s.RegisteredAt = time.Unix(registered, 0).UTC()
	if lastAttempt.Valid {
		t := time.Unix(lastAttempt.Int64, 0).UTC()
		s.LastAttemptAt = &t
	}
	return s, nil
}

func (s *SQLStore) FindByIdentity(ctx context.Context, email, dateOfBirth string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE email=$1 AND date_of_birth=$2`,
		email, dateOfBirth)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

func (s *SQLStore) Create(ctx context.Context, st Student) error {
	var lastAttempt any
	if st.LastAttemptAt != nil {
		lastAttempt = st.LastAttemptAt.Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (`+studentCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		st.ID, st.Identity.FirstName, st.Identity.LastName, st.Identity.Email,
		st.Identity.DateOfBirth, st.FolderID, st.AttemptCount, boolToInt(st.IsBlocked),
		st.Status, st.RegisteredAt.Unix(), lastAttempt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE id=$1`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

func (s *SQLStore) List(ctx context.Context, onlyBlocked bool) ([]Student, error) {
	q := `SELECT ` + studentCols + ` FROM students`
	if onlyBlocked {
		q += ` WHERE is_blocked=1`
	}
	q += ` ORDER BY registered_at DESC, id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetStatus(ctx context.Context, id, status string) error {
	return s.updateOne(ctx, `UPDATE students SET status=$1 WHERE id=$2`, status, id)
}

func (s *SQLStore) SetFolder(ctx context.Context, id, folderID string) error {
	return s.updateOne(ctx, `UPDATE students SET folder_id=$1 WHERE id=$2`, folderID, id)
}

func (s *SQLStore) IncrementAttempt(ctx context.Context, id string, limit int, at time.Time) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	// Increment and blocked-derivation happen in one statement so the count
	// is re-read at write time rather than carried from an earlier lookup.
	res, err := tx.ExecContext(ctx,
		`UPDATE students SET
			attempt_count = attempt_count + 1,
			is_blocked = CASE WHEN attempt_count + 1 >= $1 THEN 1 ELSE 0 END,
			last_attempt_at = $2
		 WHERE id=$3`,
		limit, at.Unix(), id)
	if err != nil {
		return 0, false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, false, ErrNotFound
	}

	var count, blocked int
	if err := tx.QueryRowContext(ctx,
		`SELECT attempt_count, is_blocked FROM students WHERE id=$1`, id,
	).Scan(&count, &blocked); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return count, blocked != 0, nil
}

func (s *SQLStore) ResetAttempts(ctx context.Context, id string) error {
	return s.updateOne(ctx,
		`UPDATE students SET attempt_count=0, is_blocked=0 WHERE id=$1`, id)
}

func (s *SQLStore) AppendAssessment(ctx context.Context, a Assessment) error {
	per, err := json.Marshal(a.Result.PerSection)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, student_id, overall, per_section_json, rating, eligible, report_key, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.StudentID, a.Result.Overall, string(per), string(a.Result.Rating),
		boolToInt(a.Result.Eligible), a.ReportKey, a.Result.CompletedAt.Unix())
	return err
}

func (s *SQLStore) ListAssessments(ctx context.Context, studentID string) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, overall, per_section_json, rating, eligible, report_key, completed_at
		 FROM assessments WHERE student_id=$1 ORDER BY completed_at`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assessment
	for rows.Next() {
		var a Assessment
		var per, rating string
		var eligible int
		var completed int64
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Result.Overall, &per,
			&rating, &eligible, &a.ReportKey, &completed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(per), &a.Result.PerSection); err != nil {
			return nil, err
		}
		a.Result.Rating = lln.Rating(rating)
		a.Result.Eligible = eligible != 0
		a.Result.CompletedAt = time.Unix(completed, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendEnrollment(ctx context.Context, e Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, student_id, payload_json, form_key, submitted_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.StudentID, string(e.Payload), e.FormKey, e.SubmittedAt.Unix())
	return err
}

func (s *SQLStore) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, payload_json, form_key, submitted_at
		 FROM enrollments ORDER BY submitted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Enrollment
	for rows.Next() {
		var e Enrollment
		var payload string
		var submitted int64
		if err := rows.Scan(&e.ID, &e.StudentID, &payload, &e.FormKey, &submitted); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		e.SubmittedAt = time.Unix(submitted, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
