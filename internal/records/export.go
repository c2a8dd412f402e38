package records

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportWorkbook builds an xlsx snapshot of every record family for the admin
// download, regardless of which store driver is active.
func ExportWorkbook(ctx context.Context, s Store) (*excelize.File, error) {
	f := excelize.NewFile()

	write := func(sheet string, rows [][]any) error {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		header := sheetHeaders[sheet]
		all := append([][]any{header}, rows...)
		for i, row := range all {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	students, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	var studentRows [][]any
	var assessmentRows [][]any
	for _, st := range students {
		studentRows = append(studentRows, studentToRow(st))
		assessments, err := s.ListAssessments(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range assessments {
			per, err := json.Marshal(a.Result.PerSection)
			if err != nil {
				return nil, err
			}
			assessmentRows = append(assessmentRows, []any{
				a.ID, a.StudentID, strconv.Itoa(a.Result.Overall), string(per),
				string(a.Result.Rating), strconv.FormatBool(a.Result.Eligible),
				a.ReportKey, a.Result.CompletedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	if err := write(sheetStudents, studentRows); err != nil {
		return nil, err
	}
	if err := write(sheetAssessments, assessmentRows); err != nil {
		return nil, err
	}

	enrollments, err := s.ListEnrollments(ctx)
	if err != nil {
		return nil, err
	}
	var enrollmentRows [][]any
	for _, e := range enrollments {
		enrollmentRows = append(enrollmentRows, []any{
			e.ID, e.StudentID, string(e.Payload), e.FormKey,
			e.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := write(sheetEnrollments, enrollmentRows); err != nil {
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}
