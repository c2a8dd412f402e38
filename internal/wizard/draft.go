package wizard

import (
	"time"

	"github.com/clearview-college/enroll-portal/internal/lln"
	"github.com/clearview-college/enroll-portal/internal/records"
)

type PersonalDetails struct {
	Address          string `json:"address"`
	Suburb           string `json:"suburb"`
	State            string `json:"state"`
	Postcode         string `json:"postcode"`
	Phone            string `json:"phone"`
	Gender           string `json:"gender,omitempty"`
	CountryOfBirth   string `json:"country_of_birth,omitempty"`
	LanguageAtHome   string `json:"language_at_home,omitempty"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
}

type CourseDetails struct {
	CourseCode   string `json:"course_code"`
	CourseName   string `json:"course_name"`
	Intake       string `json:"intake"`
	DeliveryMode string `json:"delivery_mode,omitempty"`
}

type Background struct {
	HighestSchoolLevel string `json:"highest_school_level"`
	PriorQualification string `json:"prior_qualification,omitempty"`
	EmploymentStatus   string `json:"employment_status,omitempty"`
	NeedsSupport       bool   `json:"needs_support"`
	SupportDetails     string `json:"support_details,omitempty"`
}

type Declaration struct {
	InformationAccurate bool      `json:"information_accurate"`
	PrivacyConsent      bool      `json:"privacy_consent"`
	TermsAccepted       bool      `json:"terms_accepted"`
	SignatureName       string    `json:"signature_name"`
	SignedAt            time.Time `json:"signed_at"`
}

type DocumentRef struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Draft accumulates everything the student enters across the wizard. The
// session store copy is a volatile cache; the record store becomes
// authoritative as steps are submitted server-side.
type Draft struct {
	SessionID string           `json:"session_id"`
	StudentID string           `json:"student_id"`
	Identity  records.Identity `json:"identity"`
	Status    Step             `json:"status"`

	Responses lln.ResponseSet  `json:"responses,omitempty"`
	Score     *lln.ScoreResult `json:"score,omitempty"`

	Personal    *PersonalDetails `json:"personal_details,omitempty"`
	Course      *CourseDetails   `json:"course_details,omitempty"`
	Background  *Background      `json:"background,omitempty"`
	Declaration *Declaration     `json:"declaration,omitempty"`
	Documents   []DocumentRef    `json:"documents,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDraft(sessionID string, student records.Student, at time.Time) *Draft {
	return &Draft{
		SessionID: sessionID,
		StudentID: student.ID,
		Identity:  student.Identity,
		Status:    StepStart,
		Responses: lln.ResponseSet{},
		CreatedAt: at.UTC(),
		UpdatedAt: at.UTC(),
	}
}

// Eligible reports whether the draft carries a passing score.
func (d *Draft) Eligible() bool {
	return d.Score != nil && d.Score.Eligible
}

// CurrentPage is where the client should be, derived from the checkpoint.
// The ineligible branch parks on its own page: it never leads into
// personal details, only back to a retake.
func (d *Draft) CurrentPage() Page {
	switch d.Status {
	case StepStart, StepLLNInProgress:
		return PageAssessment
	case StepLLNResults:
		if !d.Eligible() {
			return PageNotEligible
		}
		return PagePersonal
	case StepPersonalDetails:
		return PageDeclaration
	case StepDeclaration:
		return PageDocuments
	case StepDocuments:
		return PageComplete
	case StepComplete:
		return PageSummary
	}
	return PageAssessment
}
