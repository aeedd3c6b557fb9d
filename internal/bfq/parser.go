package bfq

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/timeutil"
)

// Parser converts one uploaded answers document into a partial search
// document.
type Parser interface {
	Parse(ctx context.Context, data []byte) (domain.Doc, error)
}

// PassthroughParser indexes job-role answer documents as-is; their
// fields already carry index-ready shapes.
type PassthroughParser struct{}

func (PassthroughParser) Parse(_ context.Context, data []byte) (domain.Doc, error) {
	var doc domain.Doc
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing answers document: %w", err)
	}
	return doc, nil
}

// AnswersParser translates questionnaire answers through the questions
// schema: numeric answers become 1-based bucket levels so queries can
// filter on level > 0, choice answers keep their raw value, and facet
// labels of answered questions join into a keywords string.
type AnswersParser struct {
	schema *Schema
}

// NewAnswersParser builds a parser over a loaded questions schema.
func NewAnswersParser(schema *Schema) *AnswersParser {
	return &AnswersParser{schema: schema}
}

// answersInput is the typed slice of the uploaded document the parser
// computes from. Remaining fields pass through untouched.
type answersInput struct {
	WorkingHours *workingHoursInput `json:"workingHours"`
	Answers      []answerInput      `json:"answers"`
}

type workingHoursInput struct {
	Timezone string `json:"timezone"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Flexible bool   `json:"flexible"`
}

type answerInput struct {
	QuestionID string       `json:"questionId"`
	Value      float64      `json:"value"`
	Notes      string       `json:"notes"`
	Facets     []facetInput `json:"facets"`
}

type facetInput struct {
	Facet string  `json:"facet"`
	Value float64 `json:"value"`
	Notes string  `json:"notes"`
}

// Parse produces the partial document: the input minus lastUpdate and
// answers, with workingHours converted to DST-independent UTC hours and
// bfqAnswers/bfqKeywords derived from the schema.
func (p *AnswersParser) Parse(ctx context.Context, data []byte) (domain.Doc, error) {
	normalized := jsonc.ToJSON(data)

	var doc domain.Doc
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("parsing answers document: %w", err)
	}
	var in answersInput
	if err := json.Unmarshal(normalized, &in); err != nil {
		return nil, fmt.Errorf("parsing answers document: %w", err)
	}

	delete(doc, "lastUpdate")
	delete(doc, "answers")

	if in.WorkingHours != nil {
		doc["workingHours"] = domain.Doc{
			"utcStart": timeutil.HourToUTCNoDST(in.WorkingHours.Start, in.WorkingHours.Timezone),
			"utcEnd":   timeutil.HourToUTCNoDST(in.WorkingHours.End, in.WorkingHours.Timezone),
			"flexible": in.WorkingHours.Flexible,
		}
	}
	doc["bfqAnswers"] = p.parseAnswers(ctx, in.Answers)
	doc["bfqKeywords"] = p.keywords(in.Answers)

	return doc, nil
}

func (p *AnswersParser) parseAnswers(ctx context.Context, answers []answerInput) domain.Doc {
	log := logger.FromContext(ctx)

	out := make(domain.Doc, len(answers))
	for _, ans := range answers {
		q := p.schema.Question(ans.QuestionID)
		if q == nil {
			log.Warn("unknown question id, skipping answer", zap.String("question_id", ans.QuestionID))
			continue
		}
		switch q.AnswerType {
		case AnswerTypeChoice:
			// Choices arrive pre-leveled as the 1-based choice index.
			out[ans.QuestionID] = levelValue(ans.Value, ans.Notes)
		case AnswerTypeNumber:
			switch q.QuestionType {
			case QuestionTypeSimple:
				out[ans.QuestionID] = levelValue(p.level(q, ans.Value), ans.Notes)
			case QuestionTypeMultifaceted:
				if len(ans.Facets) == 0 {
					log.Warn("multifaceted answer without facets", zap.String("question_id", ans.QuestionID))
					continue
				}
				facets := make([]domain.Doc, 0, len(ans.Facets))
				for _, f := range ans.Facets {
					facets = append(facets, domain.Doc{f.Facet: levelValue(p.level(q, f.Value), f.Notes)})
				}
				out[ans.QuestionID] = facets
			default:
				log.Warn("unknown question type", zap.String("question_id", ans.QuestionID), zap.String("question_type", q.QuestionType))
			}
		default:
			log.Warn("unknown answer type", zap.String("question_id", ans.QuestionID), zap.String("answer_type", q.AnswerType))
		}
	}
	return out
}

// level buckets a numeric value into the question's answer levels, or
// the schema defaults when the question defines none. A value past
// every bucket lands on len(levels)+1.
func (p *AnswersParser) level(q *Question, value float64) int {
	levels := q.AnswerLevels
	if levels == nil {
		levels = p.schema.Defaults.AnswerLevels
	}

	level := 1
	for _, al := range levels {
		min, max := 0.0, math.Inf(1)
		if al.Min != nil {
			min = *al.Min
		}
		if al.Max != nil {
			max = *al.Max
		}
		if value >= min && value < max {
			break
		}
		level++
	}
	return level
}

// keywords joins the distinct facet labels of every answered facet,
// preserving answer order.
func (p *AnswersParser) keywords(answers []answerInput) string {
	labels := p.schema.FacetLabels()

	seen := make(map[string]struct{})
	var words []string
	for _, ans := range answers {
		for _, f := range ans.Facets {
			label := labels[f.Facet]
			if label == "" {
				continue
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			words = append(words, label)
		}
	}
	return strings.Join(words, " ")
}

func levelValue(level any, notes string) domain.Doc {
	v := domain.Doc{"level": level}
	if notes != "" {
		v["notes"] = notes
	}
	return v
}
