package course

// CourseID identifies a course on the backend.
type CourseID string

// ModuleID identifies a module within a course.
type ModuleID string

// LessonID identifies a lesson within a module.
type LessonID string

// QuizID identifies a quiz attached to a module.
type QuizID string

// QuestionID identifies a question within a quiz.
type QuestionID string

// OptionID identifies an answer option within a question.
type OptionID string

// Course is an ordered sequence of modules. A Course is treated as
// immutable for the lifetime of a progression session.
type Course struct {
	ID      CourseID `json:"id"`
	Title   string   `json:"title,omitempty"`
	Modules []Module `json:"modules"`
}

// Module groups lessons and at most one quiz.
type Module struct {
	ID      ModuleID `json:"id"`
	Title   string   `json:"title,omitempty"`
	Lessons []Lesson `json:"lessons"`

	// Quiz is nil when the module has no quiz or when it has not been
	// resolved yet. QuizKnown distinguishes the two.
	Quiz      *Quiz `json:"quiz,omitempty"`
	QuizKnown bool  `json:"-"`
}

// Lesson is a single unit of content. Completion is tracked externally,
// keyed by lesson ID.
type Lesson struct {
	ID              LessonID `json:"id"`
	Title           string   `json:"title,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
}

// Quiz is an ordered sequence of questions.
type Quiz struct {
	ID        QuizID     `json:"id"`
	Questions []Question `json:"questions"`
}

// Question is a single quiz question with ordered options.
type Question struct {
	ID      QuestionID `json:"id"`
	Text    string     `json:"text,omitempty"`
	Options []Option   `json:"options"`
}

// Option is a selectable answer. Answer is nil when the backend withheld
// the answer key from the client payload.
type Option struct {
	ID     OptionID `json:"id"`
	Value  string   `json:"value,omitempty"`
	Answer *bool    `json:"answer,omitempty"`
}

// IsCorrect reports whether the option is marked as a correct answer.
// Options without an answer flag are never correct.
func (o Option) IsCorrect() bool {
	return o.Answer != nil && *o.Answer
}

// Submission maps each answered question to the chosen option.
type Submission map[QuestionID]OptionID

// HasAnswerKey reports whether the client payload carries answer flags.
// A quiz with no questions trivially has a usable key.
func (q *Quiz) HasAnswerKey() bool {
	if q == nil {
		return false
	}
	if len(q.Questions) == 0 {
		return true
	}
	for _, question := range q.Questions {
		for _, opt := range question.Options {
			if opt.Answer != nil {
				return true
			}
		}
	}
	return false
}

// Question returns the question with the given ID, or nil.
func (q *Quiz) Question(id QuestionID) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}

// Option returns the option with the given ID, or nil.
func (q *Question) Option(id OptionID) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// Module returns the module with the given ID, or nil.
func (c *Course) Module(id ModuleID) *Module {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i]
		}
	}
	return nil
}

// HasLesson reports whether the module contains the lesson.
func (m *Module) HasLesson(id LessonID) bool {
	for _, l := range m.Lessons {
		if l.ID == id {
			return true
		}
	}
	return false
}

// TotalMinutes sums the informational lesson durations of the course.
func (c *Course) TotalMinutes() int {
	total := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			total += l.DurationMinutes
		}
	}
	return total
}

// DeepCopy returns a copy of the course that shares no mutable state.
func (c *Course) DeepCopy() *Course {
	out := &Course{ID: c.ID, Title: c.Title, Modules: make([]Module, len(c.Modules))}
	for i, m := range c.Modules {
		cp := Module{
			ID:        m.ID,
			Title:     m.Title,
			Lessons:   append([]Lesson(nil), m.Lessons...),
			QuizKnown: m.QuizKnown,
		}
		cp.Quiz = m.Quiz.DeepCopy()
		out.Modules[i] = cp
	}
	return out
}

// DeepCopy returns a copy of the quiz that shares no mutable state.
func (q *Quiz) DeepCopy() *Quiz {
	if q == nil {
		return nil
	}
	out := &Quiz{ID: q.ID, Questions: make([]Question, len(q.Questions))}
	for i, question := range q.Questions {
		opts := make([]Option, len(question.Options))
		for j, o := range question.Options {
			opts[j] = Option{ID: o.ID, Value: o.Value}
			if o.Answer != nil {
				v := *o.Answer
				opts[j].Answer = &v
			}
		}
		out.Questions[i] = Question{ID: question.ID, Text: question.Text, Options: opts}
	}
	return out
}

// WithoutAnswers returns a copy of the quiz with every answer flag removed,
// which is what an unsolved quiz looks like on the wire.
func (q *Quiz) WithoutAnswers() *Quiz {
	out := q.DeepCopy()
	if out == nil {
		return nil
	}
	for i := range out.Questions {
		for j := range out.Questions[i].Options {
			out.Questions[i].Options[j].Answer = nil
		}
	}
	return out
}
