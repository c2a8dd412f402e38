package lln

import (
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var bankYAML []byte

// Kind discriminates how a question is answered. Scoring branches on it, so
// every value added here needs a case in credit().
type Kind string

const (
	KindText         Kind = "text"
	KindNumber       Kind = "number"
	KindEmail        Kind = "email"
	KindSingleChoice Kind = "single_choice"
	KindMultiChoice  Kind = "multi_choice"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindNumber, KindEmail, KindSingleChoice, KindMultiChoice:
		return true
	}
	return false
}

type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Section string   `yaml:"section" json:"section"`
	Kind    Kind     `yaml:"kind" json:"kind"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`
	// Expected is the marking key. Empty means the question is scored on
	// presence of an answer, not correctness. Never serialized to JSON.
	Expected string `yaml:"expected,omitempty" json:"-"`
	Required bool   `yaml:"required" json:"required"`
}

// Bank is the ordered, immutable question set. Order defines presentation
// order; sections appear in first-use order.
type Bank struct {
	questions []Question
	sections  []string
}

// LoadBank parses and validates the embedded question bank.
func LoadBank() (*Bank, error) {
	var doc struct {
		Questions []Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(bankYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	seen := map[string]bool{}
	var sections []string
	inSections := map[string]bool{}
	for i, q := range doc.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if q.Section == "" {
			return nil, fmt.Errorf("question %q has no section", q.ID)
		}
		if !q.Kind.valid() {
			return nil, fmt.Errorf("question %q has unknown kind %q", q.ID, q.Kind)
		}
		switch q.Kind {
		case KindSingleChoice, KindMultiChoice:
			if len(q.Options) < 2 {
				return nil, fmt.Errorf("choice question %q needs at least 2 options", q.ID)
			}
		default:
			if len(q.Options) > 0 {
				return nil, fmt.Errorf("question %q is %s but declares options", q.ID, q.Kind)
			}
		}
		if !inSections[q.Section] {
			inSections[q.Section] = true
			sections = append(sections, q.Section)
		}
	}

	b := &Bank{questions: doc.Questions, sections: sections}
	slog.Info("question bank loaded", "questions", len(b.questions), "sections", len(b.sections))
	return b, nil
}

// Questions returns the full bank, marking keys included, in order.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Public returns the bank with marking keys stripped, for serving to the
// browser. Same idea as hiding answer keys from students on exam fetch.
func (b *Bank) Public() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	for i := range out {
		out[i].Expected = ""
	}
	return out
}

func (b *Bank) Sections() []string {
	out := make([]string, len(b.sections))
	copy(out, b.sections)
	return out
}

func (b *Bank) Len() int { return len(b.questions) }
