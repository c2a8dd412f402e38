package wizard

// Step is a checkpoint written into the draft once the matching page has been
// completed. The sequence is strictly ordered; guards compare ranks and no
// checkpoint can be skipped on resume.
type Step string

const (
	StepStart           Step = "start"
	StepLLNInProgress   Step = "lln-in-progress"
	StepLLNResults      Step = "lln-results"
	StepPersonalDetails Step = "personal-details-complete"
	StepDeclaration     Step = "declaration-complete"
	StepDocuments       Step = "documents-collected"
	StepComplete        Step = "enrollment-complete"
)

var stepOrder = []Step{
	StepStart,
	StepLLNInProgress,
	StepLLNResults,
	StepPersonalDetails,
	StepDeclaration,
	StepDocuments,
	StepComplete,
}

func rank(s Step) int {
	for i, t := range stepOrder {
		if t == s {
			return i
		}
	}
	return -1
}

// atLeast reports whether s has reached checkpoint min.
func atLeast(s, min Step) bool {
	return rank(s) >= rank(min)
}

// Page identifies a wizard screen. Pages and steps are related but distinct:
// a page's guard requires a minimum checkpoint, and completing a page's
// submit action advances to the next checkpoint.
type Page string

const (
	PageAssessment  Page = "assessment"
	PageResults     Page = "results"
	PageNotEligible Page = "not-eligible"
	PagePersonal    Page = "personal-details"
	PageDeclaration Page = "declaration"
	PageDocuments   Page = "documents"
	PageComplete    Page = "complete"
	PageSummary     Page = "summary"
)
