package wizard

import (
	"fmt"
	"time"

	"github.com/clearview-college/enroll-portal/internal/lln"
)

// StaleError reports a page precondition failure: the draft has not reached
// the checkpoint the page needs. Resolution is always a redirect to the
// earliest unmet step, never fabricating the missing data.
type StaleError struct {
	Status   Step
	Redirect Page
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("draft at %q has not met this page's precondition, redirect to %q", e.Status, e.Redirect)
}

func stale(d *Draft) error {
	return &StaleError{Status: d.Status, Redirect: d.CurrentPage()}
}

// Guard checks the page's minimum checkpoint against the draft.
func (d *Draft) Guard(page Page) error {
	if d.Status == StepComplete && page != PageSummary {
		// Terminal: re-entry only redisplays the summary.
		return stale(d)
	}
	switch page {
	case PageAssessment:
		// Locked once a result exists: a later submission would overwrite
		// the score the draft's checkpoints were granted on. The way back
		// in is Retake, which discards the old result first.
		if atLeast(d.Status, StepLLNResults) {
			return stale(d)
		}
		return nil
	case PageResults, PageNotEligible:
		if !atLeast(d.Status, StepLLNResults) {
			return stale(d)
		}
	case PagePersonal:
		if !atLeast(d.Status, StepLLNResults) || !d.Eligible() {
			return stale(d)
		}
	case PageDeclaration:
		if !atLeast(d.Status, StepPersonalDetails) {
			return stale(d)
		}
	case PageDocuments:
		if !atLeast(d.Status, StepDeclaration) {
			return stale(d)
		}
	case PageComplete:
		if !atLeast(d.Status, StepDocuments) {
			return stale(d)
		}
	case PageSummary:
		if d.Status != StepComplete {
			return stale(d)
		}
	}
	return nil
}

// advanceTo moves the checkpoint forward, never backward: re-submitting an
// earlier page (backward navigation) keeps every later checkpoint and field.
func (d *Draft) advanceTo(s Step, at time.Time) {
	if rank(s) > rank(d.Status) {
		d.Status = s
	}
	d.UpdatedAt = at.UTC()
}

// SaveResponses merges partial assessment answers into the draft.
func (d *Draft) SaveResponses(partial lln.ResponseSet, at time.Time) error {
	if err := d.Guard(PageAssessment); err != nil {
		return err
	}
	if d.Responses == nil {
		d.Responses = lln.ResponseSet{}
	}
	d.Responses.Merge(partial)
	d.advanceTo(StepLLNInProgress, at)
	return nil
}

// AttachResult records a freshly computed score and moves to the results
// checkpoint. The previous result, if any, has already been discarded by
// Retake.
func (d *Draft) AttachResult(r lln.ScoreResult, at time.Time) error {
	if err := d.Guard(PageAssessment); err != nil {
		return err
	}
	r2 := r
	d.Score = &r2
	d.advanceTo(StepLLNResults, at)
	return nil
}

// Retake discards the previous score and returns to the assessment. The
// attempt gate still applies; this only rewinds the draft.
func (d *Draft) Retake(at time.Time) error {
	if err := d.Guard(PageResults); err != nil {
		return err
	}
	d.Score = nil
	d.Responses = lln.ResponseSet{}
	d.Status = StepLLNInProgress
	d.UpdatedAt = at.UTC()
	return nil
}

// SubmitPersonal merges the personal-details page. Requires an eligible
// score; the ineligible branch never reaches here.
func (d *Draft) SubmitPersonal(p PersonalDetails, c CourseDetails, b Background, at time.Time) error {
	if err := d.Guard(PagePersonal); err != nil {
		return err
	}
	d.Personal = &p
	d.Course = &c
	d.Background = &b
	d.advanceTo(StepPersonalDetails, at)
	return nil
}

func (d *Draft) SubmitDeclaration(dec Declaration, at time.Time) error {
	if err := d.Guard(PageDeclaration); err != nil {
		return err
	}
	d.Declaration = &dec
	d.advanceTo(StepDeclaration, at)
	return nil
}

// AddDocument records an uploaded file. Uploading alone does not advance the
// checkpoint; FinishDocuments does.
func (d *Draft) AddDocument(ref DocumentRef, at time.Time) error {
	if err := d.Guard(PageDocuments); err != nil {
		return err
	}
	d.Documents = append(d.Documents, ref)
	d.UpdatedAt = at.UTC()
	return nil
}

// FinishDocuments closes the upload step. At least one document is required.
func (d *Draft) FinishDocuments(at time.Time) error {
	if err := d.Guard(PageDocuments); err != nil {
		return err
	}
	if len(d.Documents) == 0 {
		return &ValidationError{Issues: []string{"at least one document must be uploaded"}}
	}
	d.advanceTo(StepDocuments, at)
	return nil
}

// Complete marks the draft terminal. After this only the summary is served.
func (d *Draft) Complete(at time.Time) error {
	if err := d.Guard(PageComplete); err != nil {
		return err
	}
	d.advanceTo(StepComplete, at)
	return nil
}
