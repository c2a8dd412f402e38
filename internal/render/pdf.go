// Package render produces the PDF artifacts written into student folders.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/clearview-college/enroll-portal/internal/lln"
	"github.com/clearview-college/enroll-portal/internal/records"
	"github.com/clearview-college/enroll-portal/internal/wizard"
)

const collegeName = "Clearview Vocational College"

func newDoc(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, collegeName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func labelRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 7, value, "", "L", false)
}

// AssessmentReport renders the LLN result summary for a single attempt.
func AssessmentReport(student records.Student, res lln.ScoreResult) ([]byte, error) {
	pdf := newDoc("LLN Assessment Report")

	labelRow(pdf, "Student", student.Identity.FullName())
	labelRow(pdf, "Email", student.Identity.Email)
	labelRow(pdf, "Date of birth", student.Identity.DateOfBirth)
	labelRow(pdf, "Completed", res.CompletedAt.Format(time.RFC1123))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 8, "Section", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Score", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	sections := make([]string, 0, len(res.PerSection))
	for s := range res.PerSection {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	for _, s := range sections {
		pdf.CellFormat(110, 8, s, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d%%", res.PerSection[s]), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	labelRow(pdf, "Overall", fmt.Sprintf("%d%%", res.Overall))
	labelRow(pdf, "Rating", string(res.Rating))

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	if res.Eligible {
		pdf.SetTextColor(0, 110, 0)
		pdf.CellFormat(0, 9, "Eligible to proceed with enrollment", "", 1, "L", false, 0, "")
	} else {
		pdf.SetTextColor(170, 0, 0)
		pdf.CellFormat(0, 9, "Not eligible - please contact student support", "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	return output(pdf)
}

// EnrollmentForm renders the completed enrollment as a signed form.
func EnrollmentForm(d *wizard.Draft) ([]byte, error) {
	pdf := newDoc("Enrollment Form")

	section := func(name string) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, name, "B", 1, "L", false, 0, "")
		pdf.Ln(1)
	}

	section("Student")
	labelRow(pdf, "Name", d.Identity.FullName())
	labelRow(pdf, "Email", d.Identity.Email)
	labelRow(pdf, "Date of birth", d.Identity.DateOfBirth)

	if d.Personal != nil {
		section("Personal Details")
		labelRow(pdf, "Address", fmt.Sprintf("%s, %s %s %s",
			d.Personal.Address, d.Personal.Suburb, d.Personal.State, d.Personal.Postcode))
		labelRow(pdf, "Phone", d.Personal.Phone)
		labelRow(pdf, "Emergency contact", fmt.Sprintf("%s (%s)",
			d.Personal.EmergencyContact, d.Personal.EmergencyPhone))
	}

	if d.Course != nil {
		section("Course")
		labelRow(pdf, "Course", fmt.Sprintf("%s - %s", d.Course.CourseCode, d.Course.CourseName))
		labelRow(pdf, "Intake", d.Course.Intake)
		if d.Course.DeliveryMode != "" {
			labelRow(pdf, "Delivery mode", d.Course.DeliveryMode)
		}
	}

	if d.Background != nil {
		section("Background")
		labelRow(pdf, "Highest school level", d.Background.HighestSchoolLevel)
		if d.Background.PriorQualification != "" {
			labelRow(pdf, "Prior qualification", d.Background.PriorQualification)
		}
		if d.Background.NeedsSupport {
			labelRow(pdf, "Support required", d.Background.SupportDetails)
		}
	}

	if d.Score != nil {
		section("LLN Assessment")
		labelRow(pdf, "Overall", fmt.Sprintf("%d%%", d.Score.Overall))
		labelRow(pdf, "Rating", string(d.Score.Rating))
	}

	if len(d.Documents) > 0 {
		section("Documents Provided")
		for _, doc := range d.Documents {
			labelRow(pdf, doc.Kind, doc.Name)
		}
	}

	if d.Declaration != nil {
		section("Declaration")
		labelRow(pdf, "Signed by", d.Declaration.SignatureName)
		labelRow(pdf, "Signed at", d.Declaration.SignedAt.Format(time.RFC1123))
		labelRow(pdf, "Declared", "Information accurate; privacy and terms accepted")
	}

	return output(pdf)
}
