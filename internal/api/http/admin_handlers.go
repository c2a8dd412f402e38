package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clearview-college/enroll-portal/internal/docs"
	"github.com/clearview-college/enroll-portal/internal/gate"
	"github.com/clearview-college/enroll-portal/internal/rbac"
	"github.com/clearview-college/enroll-portal/internal/records"
)

// AdminAPI serves the staff portal. Callers arrive through the JWT middleware
// with a role in context; per-route permissions are enforced at mount time.
type AdminAPI struct {
	Gate    *gate.Gate
	Records records.Store
	Docs    docs.Store
}

func (a *AdminAPI) Mount(r chi.Router) {
	r.With(rbac.Require("students:list")).Get("/students", a.ListStudents)
	r.With(rbac.Require("students:view")).Get("/students/{studentID}", a.GetStudent)
	r.With(rbac.Require("attempts:reset")).Post("/students/{studentID}/reset-attempts", a.ResetAttempts)
	r.With(rbac.Require("reports:view")).Get("/students/{studentID}/report", a.LatestReport)
	r.With(rbac.Require("documents:view")).Get("/students/{studentID}/documents", a.ListDocuments)
	r.With(rbac.Require("records:export")).Get("/export", a.Export)
}

// GET /admin/students?blocked=true
func (a *AdminAPI) ListStudents(w http.ResponseWriter, r *http.Request) {
	onlyBlocked := r.URL.Query().Get("blocked") == "true"
	students, err := a.Records.List(r.Context(), onlyBlocked)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

// GET /admin/students/{studentID}
func (a *AdminAPI) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")
	student, err := a.Records.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	assessments, err := a.Records.ListAssessments(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student":     student,
		"assessments": assessments,
	})
}

// POST /admin/students/{studentID}/reset-attempts
func (a *AdminAPI) ResetAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")
	if err := a.Gate.ResetAttempts(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student_id":    id,
		"attempt_count": 0,
		"is_blocked":    false,
		"reset_by":      rbac.SubjectFromContext(r.Context()),
	})
}

// GET /admin/students/{studentID}/report — latest assessment report PDF.
func (a *AdminAPI) LatestReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")
	assessments, err := a.Records.ListAssessments(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	key := ""
	for i := len(assessments) - 1; i >= 0; i-- {
		if assessments[i].ReportKey != "" {
			key = assessments[i].ReportKey
			break
		}
	}
	if key == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	rc, err := a.Docs.Open(key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = io.Copy(w, rc)
}

// GET /admin/students/{studentID}/documents
func (a *AdminAPI) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")
	student, err := a.Records.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if student.FolderID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"files": []docs.FileInfo{}})
		return
	}
	files, err := a.Docs.List(student.FolderID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	link, err := a.Docs.ShareableLink(student.FolderID)
	if err != nil {
		link = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":  files,
		"folder": link,
	})
}

// GET /admin/export — xlsx snapshot of all records.
func (a *AdminAPI) Export(w http.ResponseWriter, r *http.Request) {
	f, err := records.ExportWorkbook(r.Context(), a.Records)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", gate.ErrUnavailable, err))
		return
	}
	defer f.Close()
	name := fmt.Sprintf("enrollments-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := f.WriteTo(w); err != nil {
		// Headers are gone; nothing to do but log via the server's recoverer.
		return
	}
}
