package lln

import (
	"math"
	"strings"
	"time"
)

type Rating string

const (
	RatingExcellent               Rating = "Excellent"
	RatingGood                    Rating = "Good"
	RatingNeedsSomeSupport        Rating = "Needs Some Support"
	RatingNeedsSignificantSupport Rating = "Needs Significant Support"
)

// EligibleThreshold is the minimum overall percentage for course eligibility.
const EligibleThreshold = 60

// ScoreResult is immutable once computed; a retake produces a new one.
type ScoreResult struct {
	PerSection  map[string]int `json:"per_section"`
	Overall     int            `json:"overall"`
	Rating      Rating         `json:"rating"`
	Eligible    bool           `json:"eligible"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Score marks a response set against the bank. Pure: unanswered or wrong
// answers simply earn nothing, and no error path exists. Required-field
// validation belongs to the collection phase, not here.
func (b *Bank) Score(responses ResponseSet, at time.Time) ScoreResult {
	earned := map[string]int{}
	total := map[string]int{}
	sum := 0
	for _, q := range b.questions {
		total[q.Section]++
		if credit(q, responses[q.ID]) {
			earned[q.Section]++
			sum++
		}
	}

	per := make(map[string]int, len(total))
	for _, s := range b.sections {
		per[s] = percent(earned[s], total[s])
	}
	overall := percent(sum, len(b.questions))

	return ScoreResult{
		PerSection:  per,
		Overall:     overall,
		Rating:      RatingFor(overall),
		Eligible:    overall >= EligibleThreshold,
		CompletedAt: at.UTC(),
	}
}

// credit awards the question's single point.
//
// Keyed text questions use case-insensitive substring containment: free-text
// comprehension answers are deliberately marked leniently. Every other keyed
// kind requires exact string equality. Unkeyed questions score on presence.
func credit(q Question, a Answer) bool {
	if q.Expected == "" {
		return !a.Empty()
	}
	switch q.Kind {
	case KindText:
		return strings.Contains(strings.ToLower(a.Text), strings.ToLower(q.Expected))
	case KindMultiChoice:
		for _, s := range a.Selected {
			if s == q.Expected {
				return true
			}
		}
		return false
	case KindNumber, KindEmail, KindSingleChoice:
		return a.Text == q.Expected
	}
	return false
}

func percent(earned, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

// RatingFor buckets the overall percentage. Evaluated in order, first match
// wins, so the 40/60/80 boundaries land in the higher bucket.
func RatingFor(overall int) Rating {
	switch {
	case overall < 40:
		return RatingNeedsSignificantSupport
	case overall < 60:
		return RatingNeedsSomeSupport
	case overall < 80:
		return RatingGood
	default:
		return RatingExcellent
	}
}
