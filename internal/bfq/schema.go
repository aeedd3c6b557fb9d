// Package bfq indexes background-fit questionnaire answers: numeric
// answers bucket into 1-based levels via the questions schema, facet
// labels become searchable keywords, and working hours convert to UTC.
package bfq

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// SchemaKey is the object-storage key of the questions schema. The
// schema ships as JSONC so ops can annotate question definitions.
const SchemaKey = "config/bfq-questions.jsonc"

// Question classification values used by the schema.
const (
	QuestionTypeSimple       = "simple"
	QuestionTypeMultifaceted = "multifaceted"

	AnswerTypeChoice = "choice"
	AnswerTypeNumber = "number"
)

// AnswerLevel is one bucket boundary. A nil Min means 0 and a nil Max
// means unbounded; values match when min <= value < max.
type AnswerLevel struct {
	Label string   `json:"label"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}

// Facet is one dimension of a multifaceted question, such as a single
// skill inside a skill-matrix question.
type Facet struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Question describes how one questionnaire answer maps to index fields.
type Question struct {
	ID            string        `json:"id"`
	QuestionLabel string        `json:"questionLabel"`
	QuestionType  string        `json:"questionType"`
	AnswerType    string        `json:"answerType"`
	Facets        []Facet       `json:"facets"`
	AnswerChoices []string      `json:"answerChoices"`
	AnswerLevels  []AnswerLevel `json:"answerLevels"`
}

// Schema is the questions configuration document.
type Schema struct {
	Defaults struct {
		AnswerLevels []AnswerLevel `json:"answerLevels"`
	} `json:"defaults"`
	Questions []Question `json:"questions"`
}

// ParseSchema decodes a JSONC questions schema.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return nil, fmt.Errorf("parsing questions schema: %w", err)
	}
	return &s, nil
}

// Question returns the schema entry for a question id, or nil.
func (s *Schema) Question(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// FacetLabels maps every facet code defined in the schema to its
// human-readable label.
func (s *Schema) FacetLabels() map[string]string {
	labels := make(map[string]string)
	for _, q := range s.Questions {
		for _, f := range q.Facets {
			labels[f.Code] = f.Label
		}
	}
	return labels
}
