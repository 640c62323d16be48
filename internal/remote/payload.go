package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/schemas"
)

// flexID accepts identifiers sent as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// flexInt accepts integers sent as JSON numbers or string-encoded ints.
type flexInt int

func (v *flexInt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("integer %q: %w", s, err)
		}
		*v = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("integer: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("integer %s: %w", n, err)
	}
	*v = flexInt(i)
	return nil
}

type moduleRecord struct {
	ID        flexID         `json:"id"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	Lessons   []lessonRecord `json:"lessons"`
}

type lessonRecord struct {
	ID              flexID `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

type quizSummary struct {
	ID flexID `json:"id"`
}

type quizDetail struct {
	ID        flexID           `json:"id"`
	Questions []questionRecord `json:"questions"`
}

type questionRecord struct {
	ID      flexID         `json:"id"`
	Text    string         `json:"text"`
	Options []optionRecord `json:"options"`
}

type optionRecord struct {
	ID     flexID `json:"id"`
	Value  string `json:"value"`
	Answer *bool  `json:"answer,omitempty"`
}

type answerRecord struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

type submitResponse struct {
	Score flexInt `json:"score"`
	Total flexInt `json:"total_no_of_questions"`
}

type completionRequest struct {
	Completed bool `json:"completed"`
}

var moduleListSchema = &schemas.Schema{
	Name: "module-list",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []any{"id"},
			"properties": map[string]any{
				"id":        schemas.ID(),
				"title":     map[string]any{"type": "string"},
				"completed": map[string]any{"type": "boolean"},
				"lessons": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []any{"id"},
						"properties": map[string]any{
							"id":               schemas.ID(),
							"duration_minutes": map[string]any{"type": "integer", "minimum": 0},
						},
					},
				},
			},
		},
	},
}

var quizListSchema = &schemas.Schema{
	Name: "quiz-list",
	Definition: map[string]any{
		"type":     "array",
		"maxItems": 1,
		"items": map[string]any{
			"type":       "object",
			"required":   []any{"id"},
			"properties": map[string]any{"id": schemas.ID()},
		},
	},
}

var quizDetailSchema = &schemas.Schema{
	Name: "quiz-detail",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"id", "questions"},
		"properties": map[string]any{
			"id": schemas.ID(),
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "options"},
					"properties": map[string]any{
						"id": schemas.ID(),
						"options": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []any{"id"},
								"properties": map[string]any{
									"id":     schemas.ID(),
									"answer": map[string]any{"type": "boolean"},
								},
							},
						},
					},
				},
			},
		},
	},
}

var submitResponseSchema = &schemas.Schema{
	Name: "quiz-submit-response",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"score", "total_no_of_questions"},
		"properties": map[string]any{
			"score": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "pattern": `^\s*-?[0-9]+\s*$`},
					map[string]any{"type": "integer"},
				},
			},
			"total_no_of_questions": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "pattern": `^\s*[0-9]+\s*$`},
					map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	},
}

// decode validates raw against schema and unmarshals it into v.
func decode(schema *schemas.Schema, raw []byte, v any) error {
	if err := schemas.Validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return nil
}

func toCourse(courseID course.CourseID, records []moduleRecord) (*course.Course, map[course.ModuleID]bool) {
	c := &course.Course{ID: courseID}
	done := make(map[course.ModuleID]bool, len(records))
	for _, r := range records {
		m := course.Module{ID: course.ModuleID(r.ID), Title: r.Title}
		for _, l := range r.Lessons {
			m.Lessons = append(m.Lessons, course.Lesson{
				ID:              course.LessonID(l.ID),
				Title:           l.Title,
				DurationMinutes: l.DurationMinutes,
			})
		}
		c.Modules = append(c.Modules, m)
		done[m.ID] = r.Completed
	}
	return c, done
}

func toQuiz(d quizDetail) *course.Quiz {
	q := &course.Quiz{ID: course.QuizID(d.ID)}
	for _, qr := range d.Questions {
		question := course.Question{ID: course.QuestionID(qr.ID), Text: qr.Text}
		for _, o := range qr.Options {
			question.Options = append(question.Options, course.Option{
				ID:     course.OptionID(o.ID),
				Value:  o.Value,
				Answer: o.Answer,
			})
		}
		q.Questions = append(q.Questions, question)
	}
	return q
}

// toAnswers encodes a submission sorted by question ID so the request body
// is deterministic.
func toAnswers(sub course.Submission) []answerRecord {
	out := make([]answerRecord, 0, len(sub))
	for qid, oid := range sub {
		out = append(out, answerRecord{QuestionID: string(qid), OptionID: string(oid)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
