package wizard

import (
	"errors"
	"testing"
	"time"

	"github.com/clearview-college/enroll-portal/internal/lln"
	"github.com/clearview-college/enroll-portal/internal/records"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestDraft() *Draft {
	student := records.Student{
		ID: "stu-1",
		Identity: records.Identity{
			FirstName: "Ana", LastName: "Reyes",
			Email: "a@x.com", DateOfBirth: "1995-01-01",
		},
	}
	return NewDraft("sess-1", student, now)
}

func passingScore() lln.ScoreResult {
	return lln.ScoreResult{
		Overall: 82, Rating: lln.RatingExcellent, Eligible: true,
		PerSection: map[string]int{"Reading": 80}, CompletedAt: now,
	}
}

func failingScore() lln.ScoreResult {
	return lln.ScoreResult{
		Overall: 30, Rating: lln.RatingNeedsSignificantSupport, Eligible: false,
		PerSection: map[string]int{"Reading": 20}, CompletedAt: now,
	}
}

func mustAdvanceToDeclaration(t *testing.T, d *Draft) {
	t.Helper()
	if err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "x"}}, now); err != nil {
		t.Fatal(err)
	}
	if err := d.AttachResult(passingScore(), now); err != nil {
		t.Fatal(err)
	}
	if err := d.SubmitPersonal(PersonalDetails{Address: "1 Main St"}, CourseDetails{CourseCode: "CERT3"}, Background{}, now); err != nil {
		t.Fatal(err)
	}
}

func redirectOf(t *testing.T, err error) Page {
	t.Helper()
	var se *StaleError
	if !errors.As(err, &se) {
		t.Fatalf("want StaleError, got %v", err)
	}
	return se.Redirect
}

func TestHappyPathCheckpoints(t *testing.T) {
	d := newTestDraft()
	if d.Status != StepStart {
		t.Fatalf("new draft status %q", d.Status)
	}

	if err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "x"}}, now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepLLNInProgress {
		t.Fatalf("after responses: %q", d.Status)
	}

	if err := d.AttachResult(passingScore(), now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepLLNResults || d.CurrentPage() != PagePersonal {
		t.Fatalf("after result: status=%q page=%q", d.Status, d.CurrentPage())
	}

	if err := d.SubmitPersonal(PersonalDetails{Address: "1 Main St"}, CourseDetails{}, Background{}, now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepPersonalDetails {
		t.Fatalf("after personal: %q", d.Status)
	}

	if err := d.SubmitDeclaration(Declaration{SignatureName: "Ana Reyes", SignedAt: now}, now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepDeclaration {
		t.Fatalf("after declaration: %q", d.Status)
	}

	if err := d.AddDocument(DocumentRef{Name: "id.pdf", Kind: "id"}, now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepDeclaration {
		t.Fatalf("upload alone must not advance, got %q", d.Status)
	}
	if err := d.FinishDocuments(now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepDocuments {
		t.Fatalf("after documents: %q", d.Status)
	}

	if err := d.Complete(now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepComplete || d.CurrentPage() != PageSummary {
		t.Fatalf("terminal: status=%q page=%q", d.Status, d.CurrentPage())
	}
}

func TestGuardRedirectsToEarliestUnmetStep(t *testing.T) {
	d := newTestDraft()
	mustAdvanceToDeclaration(t, d)
	// Draft is at personal-details-complete: the documents page must send
	// the student to the declaration page, not let them through.
	err := d.Guard(PageDocuments)
	if err == nil {
		t.Fatal("documents page must be guarded")
	}
	if got := redirectOf(t, err); got != PageDeclaration {
		t.Fatalf("redirect = %q, want %q", got, PageDeclaration)
	}
}

func TestGuardRequiresScoreForPersonalDetails(t *testing.T) {
	d := newTestDraft()
	err := d.SubmitPersonal(PersonalDetails{}, CourseDetails{}, Background{}, now)
	if err == nil {
		t.Fatal("personal details must require an eligible score")
	}
	if got := redirectOf(t, err); got != PageAssessment {
		t.Fatalf("redirect = %q, want %q", got, PageAssessment)
	}
}

func TestIneligibleBranchIsAbsorbing(t *testing.T) {
	d := newTestDraft()
	if err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "x"}}, now); err != nil {
		t.Fatal(err)
	}
	if err := d.AttachResult(failingScore(), now); err != nil {
		t.Fatal(err)
	}
	if d.CurrentPage() != PageNotEligible {
		t.Fatalf("page = %q, want %q", d.CurrentPage(), PageNotEligible)
	}
	// It never leads into personal details.
	err := d.SubmitPersonal(PersonalDetails{}, CourseDetails{}, Background{}, now)
	if err == nil {
		t.Fatal("ineligible draft must not accept personal details")
	}
	if got := redirectOf(t, err); got != PageNotEligible {
		t.Fatalf("redirect = %q, want %q", got, PageNotEligible)
	}
	// The only way forward is a retake, which discards the old result.
	if err := d.Retake(now); err != nil {
		t.Fatal(err)
	}
	if d.Score != nil || len(d.Responses) != 0 {
		t.Fatal("retake must discard previous score and responses")
	}
	if d.Status != StepLLNInProgress {
		t.Fatalf("after retake: %q", d.Status)
	}
}

func TestResultsLockAssessmentUntilRetake(t *testing.T) {
	d := newTestDraft()
	mustAdvanceToDeclaration(t, d)

	// A draft that advanced on an eligible score must not accept a late
	// re-submission: a failing second result would leave the later
	// checkpoints standing on an ineligible score.
	err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "changed"}}, now)
	if got := redirectOf(t, err); got != PageDeclaration {
		t.Fatalf("late responses: redirect %q, want %q", got, PageDeclaration)
	}
	err = d.AttachResult(failingScore(), now)
	if got := redirectOf(t, err); got != PageDeclaration {
		t.Fatalf("late result: redirect %q, want %q", got, PageDeclaration)
	}
	if !d.Eligible() || d.Score.Overall != 82 {
		t.Fatalf("granted score was overwritten: %+v", d.Score)
	}
	if err := d.Guard(PageDeclaration); err != nil {
		t.Fatalf("declaration page must still open: %v", err)
	}
}

func TestIneligibleResultLocksAssessmentToo(t *testing.T) {
	d := newTestDraft()
	if err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "x"}}, now); err != nil {
		t.Fatal(err)
	}
	if err := d.AttachResult(failingScore(), now); err != nil {
		t.Fatal(err)
	}
	// Even the ineligible student cannot just re-submit over the result.
	err := d.AttachResult(passingScore(), now)
	if got := redirectOf(t, err); got != PageNotEligible {
		t.Fatalf("redirect %q, want %q", got, PageNotEligible)
	}
	// Retake reopens the assessment.
	if err := d.Retake(now); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveResponses(lln.ResponseSet{"q1": {Text: "y"}}, now); err != nil {
		t.Fatalf("assessment must reopen after retake: %v", err)
	}
	if err := d.AttachResult(passingScore(), now); err != nil {
		t.Fatalf("result must attach after retake: %v", err)
	}
}

func TestBackwardNavigationNeverTruncates(t *testing.T) {
	d := newTestDraft()
	mustAdvanceToDeclaration(t, d)
	if err := d.SubmitDeclaration(Declaration{SignatureName: "Ana"}, now); err != nil {
		t.Fatal(err)
	}
	// Going back and re-submitting personal details must keep the
	// declaration and the later checkpoint.
	if err := d.SubmitPersonal(PersonalDetails{Address: "2 New St"}, CourseDetails{}, Background{}, now); err != nil {
		t.Fatal(err)
	}
	if d.Status != StepDeclaration {
		t.Fatalf("status regressed to %q", d.Status)
	}
	if d.Declaration == nil {
		t.Fatal("declaration truncated by backward navigation")
	}
	if d.Personal.Address != "2 New St" {
		t.Fatal("re-submitted fields not merged")
	}
}

func TestTerminalStateRejectsMutation(t *testing.T) {
	d := newTestDraft()
	mustAdvanceToDeclaration(t, d)
	if err := d.SubmitDeclaration(Declaration{SignatureName: "Ana"}, now); err != nil {
		t.Fatal(err)
	}
	if err := d.AddDocument(DocumentRef{Name: "id.pdf"}, now); err != nil {
		t.Fatal(err)
	}
	if err := d.FinishDocuments(now); err != nil {
		t.Fatal(err)
	}
	if err := d.Complete(now); err != nil {
		t.Fatal(err)
	}

	muts := []error{
		d.SaveResponses(lln.ResponseSet{"q1": {Text: "x"}}, now),
		d.Retake(now),
		d.SubmitPersonal(PersonalDetails{}, CourseDetails{}, Background{}, now),
		d.SubmitDeclaration(Declaration{}, now),
		d.AddDocument(DocumentRef{}, now),
		d.Complete(now),
	}
	for i, err := range muts {
		if err == nil {
			t.Fatalf("mutation %d allowed on terminal draft", i)
		}
		if got := redirectOf(t, err); got != PageSummary {
			t.Fatalf("mutation %d: redirect %q, want summary", i, got)
		}
	}
	if err := d.Guard(PageSummary); err != nil {
		t.Fatalf("summary must stay visible: %v", err)
	}
}

func TestFinishDocumentsRequiresUpload(t *testing.T) {
	d := newTestDraft()
	mustAdvanceToDeclaration(t, d)
	if err := d.SubmitDeclaration(Declaration{SignatureName: "Ana"}, now); err != nil {
		t.Fatal(err)
	}
	err := d.FinishDocuments(now)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestRetakeRequiresResults(t *testing.T) {
	d := newTestDraft()
	if err := d.Retake(now); err == nil {
		t.Fatal("retake before any result must fail")
	}
}
