package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearview-college/enroll-portal/internal/docs"
	"github.com/clearview-college/enroll-portal/internal/draft"
	"github.com/clearview-college/enroll-portal/internal/gate"
	"github.com/clearview-college/enroll-portal/internal/lln"
	"github.com/clearview-college/enroll-portal/internal/records"
	"github.com/clearview-college/enroll-portal/internal/render"
	"github.com/clearview-college/enroll-portal/internal/wizard"
)

const maxBodyBytes = 1 << 20
const maxUploadBytes = 16 << 20

// WizardAPI serves the public enrollment wizard. No authentication: sessions
// are capability URLs handed out at registration.
type WizardAPI struct {
	Bank     *lln.Bank
	Gate     *gate.Gate
	Records  records.Store
	Drafts   draft.Store
	Docs     docs.Store
	Validate *wizard.Validator
	Now      func() time.Time
}

func (a *WizardAPI) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *WizardAPI) Mount(r chi.Router) {
	r.Post("/register", a.Register)
	r.Get("/questions", a.Questions)
	r.Route("/sessions/{sessionID}", func(sr chi.Router) {
		sr.Get("/", a.GetSession)
		sr.Delete("/", a.Abandon)
		sr.Put("/responses", a.SaveResponses)
		sr.Post("/submit-assessment", a.SubmitAssessment)
		sr.Post("/retake", a.Retake)
		sr.Post("/personal-details", a.PersonalDetails)
		sr.Post("/declaration", a.Declaration)
		sr.Post("/documents", a.UploadDocument)
		sr.Post("/documents/submit", a.FinishDocuments)
		sr.Post("/complete", a.Complete)
	})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// POST /api/enroll/register
func (a *WizardAPI) Register(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body unreadable"}})
		return
	}
	if err := a.Validate.Validate(wizard.SchemaRegister, body); err != nil {
		writeError(w, err)
		return
	}
	var identity records.Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body must be valid JSON"}})
		return
	}

	verdict, err := a.Gate.ValidateOrRegister(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	if verdict.Blocked {
		// No session for a blocked identity: the next attempt must be
		// refused before the assessment even starts.
		writeJSON(w, http.StatusOK, map[string]any{
			"blocked": true,
			"message": msgAttemptLimit,
		})
		return
	}

	student := verdict.Student
	if student.FolderID == "" {
		folderID, err := a.Docs.EnsureFolder(student.ID, student.Identity.FullName())
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
			return
		}
		if err := a.Records.SetFolder(r.Context(), student.ID, folderID); err != nil {
			writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
			return
		}
		student.FolderID = folderID
	}

	d := wizard.NewDraft(uuid.NewString(), student, a.now())
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id":         d.SessionID,
		"student_id":         student.ID,
		"is_new_student":     verdict.IsNewStudent,
		"attempts_remaining": verdict.AttemptsRemaining,
		"blocked":            false,
		"current_page":       d.CurrentPage(),
	})
}

// GET /api/enroll/questions
func (a *WizardAPI) Questions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": a.Bank.Public(),
		"sections":  a.Bank.Sections(),
	})
}

func (a *WizardAPI) loadDraft(w http.ResponseWriter, r *http.Request) (*wizard.Draft, bool) {
	d, err := a.Drafts.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return d, true
}

// GET /api/enroll/sessions/{sessionID}
func (a *WizardAPI) GetSession(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":        d,
		"current_page": d.CurrentPage(),
	})
}

// DELETE /api/enroll/sessions/{sessionID}
//
// Explicit abandon. The record store keeps whatever was already submitted;
// only the in-flight session snapshot is destroyed. Sessions never abandoned
// this way expire out of the draft store on their TTL.
func (a *WizardAPI) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := a.Drafts.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/enroll/sessions/{sessionID}/responses
func (a *WizardAPI) SaveResponses(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	var partial lln.ResponseSet
	body, err := readBody(w, r)
	if err != nil || json.Unmarshal(body, &partial) != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"responses must map question ids to answers"}})
		return
	}
	if err := d.SaveResponses(partial, a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   d.Status,
		"answered": len(d.Responses),
	})
}

// POST /api/enroll/sessions/{sessionID}/submit-assessment
//
// Order matters here: the gate refuses blocked students before anything is
// scored; the assessment row must persist before the attempt is consumed and
// the draft advanced, so a store failure leaves everything retryable. A retry
// after a failed increment appends the assessment row again; the duplicate is
// tolerated (assessments are append-only history), the counter only ever
// moves when the increment itself succeeds.
func (a *WizardAPI) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	// A session that already holds a result is refused before anything is
	// scored or the attempt spent.
	if err := d.Guard(wizard.PageAssessment); err != nil {
		writeError(w, err)
		return
	}

	// Final answers may ride along with the submit.
	if body, err := readBody(w, r); err == nil && len(bytes.TrimSpace(body)) > 0 {
		var partial lln.ResponseSet
		if json.Unmarshal(body, &partial) != nil {
			writeError(w, &wizard.ValidationError{Issues: []string{"responses must map question ids to answers"}})
			return
		}
		if err := d.SaveResponses(partial, a.now()); err != nil {
			writeError(w, err)
			return
		}
	}

	if _, blocked, err := a.Gate.Status(r.Context(), d.StudentID); err != nil {
		writeError(w, err)
		return
	} else if blocked {
		writeError(w, gate.ErrBlocked)
		return
	}

	res := a.Bank.Score(d.Responses, a.now())

	student, err := a.Records.Get(r.Context(), d.StudentID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	// The report is a derived artifact; losing it never voids the attempt.
	reportKey := ""
	if pdf, err := render.AssessmentReport(student, res); err != nil {
		slog.Error("render assessment report", "student", student.ID, "err", err)
	} else {
		name := fmt.Sprintf("lln-report-%s.pdf", res.CompletedAt.Format("20060102-150405"))
		key, err := a.Docs.Upload(student.FolderID, name, bytes.NewReader(pdf), "application/pdf", "reports")
		if err != nil {
			slog.Error("store assessment report", "student", student.ID, "err", err)
		} else {
			reportKey = key
		}
	}

	assessment := records.Assessment{
		ID:        uuid.NewString(),
		StudentID: d.StudentID,
		Result:    res,
		ReportKey: reportKey,
	}
	if err := a.Records.AppendAssessment(r.Context(), assessment); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	newCount, nowBlocked, err := a.Gate.ConsumeAttempt(r.Context(), d.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Records.SetStatus(r.Context(), d.StudentID, records.StatusAssessed); err != nil {
		slog.Error("set student status", "student", d.StudentID, "err", err)
	}

	if err := d.AttachResult(res, a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	remaining := a.Gate.Limit() - newCount
	if remaining < 0 {
		remaining = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"score":              res,
		"attempt_count":      newCount,
		"attempts_remaining": remaining,
		"blocked":            nowBlocked,
		"current_page":       d.CurrentPage(),
	})
}

// POST /api/enroll/sessions/{sessionID}/retake
func (a *WizardAPI) Retake(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	if _, blocked, err := a.Gate.Status(r.Context(), d.StudentID); err != nil {
		writeError(w, err)
		return
	} else if blocked {
		writeError(w, gate.ErrBlocked)
		return
	}
	if err := d.Retake(a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       d.Status,
		"current_page": d.CurrentPage(),
	})
}

// POST /api/enroll/sessions/{sessionID}/personal-details
func (a *WizardAPI) PersonalDetails(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body unreadable"}})
		return
	}
	if err := a.Validate.Validate(wizard.SchemaPersonalDetails, body); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Personal   wizard.PersonalDetails `json:"personal_details"`
		Course     wizard.CourseDetails   `json:"course_details"`
		Background wizard.Background      `json:"background"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body must be valid JSON"}})
		return
	}
	if err := d.SubmitPersonal(req.Personal, req.Course, req.Background, a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       d.Status,
		"current_page": d.CurrentPage(),
	})
}

// POST /api/enroll/sessions/{sessionID}/declaration
func (a *WizardAPI) Declaration(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body unreadable"}})
		return
	}
	if err := a.Validate.Validate(wizard.SchemaDeclaration, body); err != nil {
		writeError(w, err)
		return
	}
	var dec wizard.Declaration
	if err := json.Unmarshal(body, &dec); err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"request body must be valid JSON"}})
		return
	}
	dec.SignedAt = a.now().UTC()
	if err := d.SubmitDeclaration(dec, a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       d.Status,
		"current_page": d.CurrentPage(),
	})
}

// POST /api/enroll/sessions/{sessionID}/documents (multipart: file, kind)
func (a *WizardAPI) UploadDocument(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	if err := d.Guard(wizard.PageDocuments); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &wizard.ValidationError{Issues: []string{"file is required"}})
		return
	}
	defer f.Close()
	kind := r.FormValue("kind")
	if kind == "" {
		kind = "other"
	}

	student, err := a.Records.Get(r.Context(), d.StudentID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	key, err := a.Docs.Upload(student.FolderID, header.Filename, f,
		header.Header.Get("Content-Type"), kind)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	ref := wizard.DocumentRef{
		Name:       header.Filename,
		Kind:       kind,
		Key:        key,
		UploadedAt: a.now().UTC(),
	}
	if err := d.AddDocument(ref, a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document":  ref,
		"documents": len(d.Documents),
	})
}

// POST /api/enroll/sessions/{sessionID}/documents/submit
func (a *WizardAPI) FinishDocuments(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	if err := d.FinishDocuments(a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       d.Status,
		"current_page": d.CurrentPage(),
	})
}

// POST /api/enroll/sessions/{sessionID}/complete
func (a *WizardAPI) Complete(w http.ResponseWriter, r *http.Request) {
	d, ok := a.loadDraft(w, r)
	if !ok {
		return
	}
	if err := d.Guard(wizard.PageComplete); err != nil {
		writeError(w, err)
		return
	}

	student, err := a.Records.Get(r.Context(), d.StudentID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	formKey := ""
	if pdf, err := render.EnrollmentForm(d); err != nil {
		slog.Error("render enrollment form", "student", student.ID, "err", err)
	} else {
		key, err := a.Docs.Upload(student.FolderID, "enrollment-form.pdf",
			bytes.NewReader(pdf), "application/pdf", "forms")
		if err != nil {
			slog.Error("store enrollment form", "student", student.ID, "err", err)
		} else {
			formKey = key
		}
	}

	payload, err := json.Marshal(d)
	if err != nil {
		writeError(w, err)
		return
	}
	enrollment := records.Enrollment{
		ID:          uuid.NewString(),
		StudentID:   d.StudentID,
		Payload:     payload,
		FormKey:     formKey,
		SubmittedAt: a.now().UTC(),
	}
	if err := a.Records.AppendEnrollment(r.Context(), enrollment); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	if err := a.Records.SetStatus(r.Context(), d.StudentID, records.StatusEnrolled); err != nil {
		slog.Error("set student status", "student", d.StudentID, "err", err)
	}

	if err := d.Complete(a.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Drafts.Put(r.Context(), d); err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       d.Status,
		"current_page": d.CurrentPage(),
		"form_key":     formKey,
	})
}
