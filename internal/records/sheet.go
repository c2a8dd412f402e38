package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/clearview-college/enroll-portal/internal/lln"
)

// SheetStore keeps records in an xlsx workbook on disk, one sheet per record
// family. This is the spreadsheet-shaped system of record the enrollment
// office actually works from; writes are append-row or cell updates,
// serialized behind a mutex and flushed to disk on every mutation.
type SheetStore struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
}

const (
	sheetStudents    = "Students"
	sheetAssessments = "Assessments"
	sheetEnrollments = "Enrollments"
)

var sheetHeaders = map[string][]any{
	sheetStudents: {"ID", "First Name", "Last Name", "Email", "Date of Birth",
		"Folder", "Attempt Count", "Blocked", "Status", "Registered At", "Last Attempt At"},
	sheetAssessments: {"ID", "Student ID", "Overall", "Per Section", "Rating",
		"Eligible", "Report Key", "Completed At"},
	sheetEnrollments: {"ID", "Student ID", "Payload", "Form Key", "Submitted At"},
}

// OpenSheet opens or creates the workbook and ensures all sheets and header
// rows exist.
func OpenSheet(path string) (*SheetStore, error) {
	var f *excelize.File
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening workbook %s: %w", path, err)
		}
	} else {
		f = excelize.NewFile()
	}

	for _, name := range []string{sheetStudents, sheetAssessments, sheetEnrollments} {
		idx, err := f.GetSheetIndex(name)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			if _, err := f.NewSheet(name); err != nil {
				return nil, err
			}
			header := sheetHeaders[name]
			if err := f.SetSheetRow(name, "A1", &header); err != nil {
				return nil, err
			}
		}
	}
	// Drop excelize's default sheet on first create.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 {
		_ = f.DeleteSheet("Sheet1")
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("saving workbook %s: %w", path, err)
	}

	slog.Info("record workbook ready", "path", path)
	return &SheetStore{path: path, f: f}, nil
}

func (s *SheetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

func studentToRow(st Student) []any {
	lastAttempt := ""
	if st.LastAttemptAt != nil {
		lastAttempt = st.LastAttemptAt.UTC().Format(time.RFC3339)
	}
	return []any{st.ID, st.Identity.FirstName, st.Identity.LastName,
		st.Identity.Email, st.Identity.DateOfBirth, st.FolderID,
		strconv.Itoa(st.AttemptCount), strconv.FormatBool(st.IsBlocked),
		st.Status, st.RegisteredAt.UTC().Format(time.RFC3339), lastAttempt}
}

func rowToStudent(row []string) (Student, error) {
	row = padRow(row, len(sheetHeaders[sheetStudents]))
	count, err := strconv.Atoi(row[6])
	if err != nil {
		return Student{}, fmt.Errorf("bad attempt count %q: %w", row[6], err)
	}
	registered, err := time.Parse(time.RFC3339, row[9])
	if err != nil {
		return Student{}, fmt.Errorf("bad registered_at %q: %w", row[9], err)
	}
	st := Student{
		ID: row[0],
		Identity: Identity{
			FirstName:   row[1],
			LastName:    row[2],
			Email:       row[3],
			DateOfBirth: row[4],
		},
		FolderID:     row[5],
		AttemptCount: count,
		IsBlocked:    row[7] == "true",
		Status:       row[8],
		RegisteredAt: registered.UTC(),
	}
	if row[10] != "" {
		t, err := time.Parse(time.RFC3339, row[10])
		if err != nil {
			return Student{}, fmt.Errorf("bad last_attempt_at %q: %w", row[10], err)
		}
		u := t.UTC()
		st.LastAttemptAt = &u
	}
	return st, nil
}

// findStudentRow returns the 1-based worksheet row holding the student, or 0.
// Caller holds the mutex.
func (s *SheetStore) findStudentRow(match func(row []string) bool) (int, []string, error) {
	rows, err := s.f.GetRows(sheetStudents)
	if err != nil {
		return 0, nil, err
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		row = padRow(row, len(sheetHeaders[sheetStudents]))
		if match(row) {
			return i + 1, row, nil
		}
	}
	return 0, nil, nil
}

func (s *SheetStore) FindByIdentity(_ context.Context, email, dateOfBirth string) (Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, row, err := s.findStudentRow(func(row []string) bool {
		return strings.EqualFold(row[3], email) && row[4] == dateOfBirth
	})
	if err != nil {
		return Student{}, err
	}
	if row == nil {
		return Student{}, ErrNotFound
	}
	return rowToStudent(row)
}

func (s *SheetStore) Create(_ context.Context, st Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(sheetStudents, studentToRow(st))
}

func (s *SheetStore) Get(_ context.Context, id string) (Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, row, err := s.findStudentRow(func(row []string) bool { return row[0] == id })
	if err != nil {
		return Student{}, err
	}
	if row == nil {
		return Student{}, ErrNotFound
	}
	return rowToStudent(row)
}

func (s *SheetStore) List(_ context.Context, onlyBlocked bool) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.f.GetRows(sheetStudents)
	if err != nil {
		return nil, err
	}
	var out []Student
	for i, row := range rows {
		if i == 0 {
			continue
		}
		st, err := rowToStudent(padRow(row, len(sheetHeaders[sheetStudents])))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if onlyBlocked && !st.IsBlocked {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *SheetStore) SetStatus(_ context.Context, id, status string) error {
	return s.updateStudentCells(id, map[int]any{9: status})
}

func (s *SheetStore) SetFolder(_ context.Context, id, folderID string) error {
	return s.updateStudentCells(id, map[int]any{6: folderID})
}

func (s *SheetStore) IncrementAttempt(_ context.Context, id string, limit int, at time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rowIdx, row, err := s.findStudentRow(func(row []string) bool { return row[0] == id })
	if err != nil {
		return 0, false, err
	}
	if rowIdx == 0 {
		return 0, false, ErrNotFound
	}
	// The count is re-read here, under the write lock, rather than trusting
	// whatever the caller saw earlier in the request.
	count, err := strconv.Atoi(row[6])
	if err != nil {
		return 0, false, fmt.Errorf("bad attempt count %q: %w", row[6], err)
	}
	count++
	blocked := count >= limit
	cells := map[int]any{
		7:  strconv.Itoa(count),
		8:  strconv.FormatBool(blocked),
		11: at.UTC().Format(time.RFC3339),
	}
	if err := s.setCells(sheetStudents, rowIdx, cells); err != nil {
		return 0, false, err
	}
	return count, blocked, s.f.Save()
}

func (s *SheetStore) ResetAttempts(_ context.Context, id string) error {
	return s.updateStudentCells(id, map[int]any{
		7: "0",
		8: "false",
	})
}

func (s *SheetStore) AppendAssessment(_ context.Context, a Assessment) error {
	per, err := json.Marshal(a.Result.PerSection)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(sheetAssessments, []any{
		a.ID, a.StudentID, strconv.Itoa(a.Result.Overall), string(per),
		string(a.Result.Rating), strconv.FormatBool(a.Result.Eligible),
		a.ReportKey, a.Result.CompletedAt.UTC().Format(time.RFC3339),
	})
}

func (s *SheetStore) ListAssessments(_ context.Context, studentID string) ([]Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.f.GetRows(sheetAssessments)
	if err != nil {
		return nil, err
	}
	var out []Assessment
	for i, row := range rows {
		if i == 0 {
			continue
		}
		row = padRow(row, len(sheetHeaders[sheetAssessments]))
		if row[1] != studentID {
			continue
		}
		a := Assessment{ID: row[0], StudentID: row[1], ReportKey: row[6]}
		if a.Result.Overall, err = strconv.Atoi(row[2]); err != nil {
			return nil, fmt.Errorf("row %d: bad overall %q: %w", i+1, row[2], err)
		}
		if err := json.Unmarshal([]byte(row[3]), &a.Result.PerSection); err != nil {
			return nil, fmt.Errorf("row %d: bad per-section payload: %w", i+1, err)
		}
		a.Result.Rating = lln.Rating(row[4])
		a.Result.Eligible = row[5] == "true"
		completed, err := time.Parse(time.RFC3339, row[7])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad completed_at %q: %w", i+1, row[7], err)
		}
		a.Result.CompletedAt = completed.UTC()
		out = append(out, a)
	}
	return out, nil
}

func (s *SheetStore) AppendEnrollment(_ context.Context, e Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(sheetEnrollments, []any{
		e.ID, e.StudentID, string(e.Payload), e.FormKey,
		e.SubmittedAt.UTC().Format(time.RFC3339),
	})
}

func (s *SheetStore) ListEnrollments(_ context.Context) ([]Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.f.GetRows(sheetEnrollments)
	if err != nil {
		return nil, err
	}
	var out []Enrollment
	for i, row := range rows {
		if i == 0 {
			continue
		}
		row = padRow(row, len(sheetHeaders[sheetEnrollments]))
		submitted, err := time.Parse(time.RFC3339, row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad submitted_at %q: %w", i+1, row[4], err)
		}
		out = append(out, Enrollment{
			ID:          row[0],
			StudentID:   row[1],
			Payload:     []byte(row[2]),
			FormKey:     row[3],
			SubmittedAt: submitted.UTC(),
		})
	}
	return out, nil
}

// appendRow writes values on the first free row and flushes. Caller holds the
// mutex.
func (s *SheetStore) appendRow(sheet string, values []any) error {
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	return s.f.Save()
}

// updateStudentCells sets cells (1-based column -> value) on the student's
// row and flushes.
func (s *SheetStore) updateStudentCells(id string, cells map[int]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rowIdx, _, err := s.findStudentRow(func(row []string) bool { return row[0] == id })
	if err != nil {
		return err
	}
	if rowIdx == 0 {
		return ErrNotFound
	}
	if err := s.setCells(sheetStudents, rowIdx, cells); err != nil {
		return err
	}
	return s.f.Save()
}

func (s *SheetStore) setCells(sheet string, rowIdx int, cells map[int]any) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col, rowIdx)
		if err != nil {
			return err
		}
		if err := s.f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
