package lln

import (
	"encoding/json"
	"strings"
)

// Answer is a single response value: free text for text/number/email/single
// choice questions, a selection list for multi-choice. On the wire it is
// either a JSON string or an array of strings.
type Answer struct {
	Text     string
	Selected []string
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		a.Text = s
		a.Selected = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	a.Text = ""
	a.Selected = list
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Selected != nil {
		return json.Marshal(a.Selected)
	}
	return json.Marshal(a.Text)
}

// Empty reports whether the answer carries no usable value after trimming.
func (a Answer) Empty() bool {
	for _, s := range a.Selected {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return strings.TrimSpace(a.Text) == ""
}

// ResponseSet maps question IDs to answers. Missing keys are unanswered.
type ResponseSet map[string]Answer

// Merge overlays src onto r, replacing existing answers per question.
func (r ResponseSet) Merge(src ResponseSet) {
	for id, a := range src {
		r[id] = a
	}
}
