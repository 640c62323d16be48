// Package coursetest provides course fixtures shared by tests.
package coursetest

import "github.com/abhisek/coursetrack/internal/course"

// Fixed identifiers of the TwoModule fixture.
const (
	CourseID course.CourseID = "c1"

	ModuleA course.ModuleID = "m-a"
	ModuleB course.ModuleID = "m-b"

	LessonA1 course.LessonID = "l-a1"
	LessonA2 course.LessonID = "l-a2"
	LessonB1 course.LessonID = "l-b1"

	QuizB course.QuizID = "q-b"

	Question1 course.QuestionID = "qq-1"
	Question2 course.QuestionID = "qq-2"
)

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// TwoModule returns a course with module A (two lessons, no quiz) and
// module B (one lesson, one quiz with two single-answer questions).
func TwoModule() *course.Course {
	return &course.Course{
		ID:    CourseID,
		Title: "Intro to Go",
		Modules: []course.Module{
			{
				ID:    ModuleA,
				Title: "Basics",
				Lessons: []course.Lesson{
					{ID: LessonA1, Title: "Hello", DurationMinutes: 5},
					{ID: LessonA2, Title: "Types", DurationMinutes: 10},
				},
				QuizKnown: true,
			},
			{
				ID:    ModuleB,
				Title: "Concurrency",
				Lessons: []course.Lesson{
					{ID: LessonB1, Title: "Goroutines", DurationMinutes: 15},
				},
				Quiz:      QuizTwoQuestions(),
				QuizKnown: true,
			},
		},
	}
}

// QuizTwoQuestions returns quiz B. The correct options are "a1" and "b2".
func QuizTwoQuestions() *course.Quiz {
	return &course.Quiz{
		ID: QuizB,
		Questions: []course.Question{
			{
				ID:   Question1,
				Text: "What starts a goroutine?",
				Options: []course.Option{
					{ID: "a1", Value: "go", Answer: Bool(true)},
					{ID: "a2", Value: "run", Answer: Bool(false)},
				},
			},
			{
				ID:   Question2,
				Text: "What synchronizes goroutines?",
				Options: []course.Option{
					{ID: "b1", Value: "print", Answer: Bool(false)},
					{ID: "b2", Value: "channel", Answer: Bool(true)},
				},
			},
		},
	}
}

// AllCorrect is a submission answering every TwoModule quiz question correctly.
func AllCorrect() course.Submission {
	return course.Submission{Question1: "a1", Question2: "b2"}
}

// HalfCorrect is a submission scoring 50% on the TwoModule quiz.
func HalfCorrect() course.Submission {
	return course.Submission{Question1: "a1", Question2: "b1"}
}

// TenQuestionQuiz builds a quiz of n questions whose correct option is
// always "right".
func TenQuestionQuiz(id course.QuizID, n int) *course.Quiz {
	q := &course.Quiz{ID: id}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, course.Question{
			ID: course.QuestionID(string(rune('a'+i)) + "-q"),
			Options: []course.Option{
				{ID: "right", Answer: Bool(true)},
				{ID: "wrong", Answer: Bool(false)},
			},
		})
	}
	return q
}

// Answers builds a submission for a TenQuestionQuiz with the first
// `correct` questions answered right and the rest wrong.
func Answers(q *course.Quiz, correct int) course.Submission {
	sub := course.Submission{}
	for i, question := range q.Questions {
		if i < correct {
			sub[question.ID] = "right"
		} else {
			sub[question.ID] = "wrong"
		}
	}
	return sub
}

// FixtureJSON is the TwoModule course in fixture file format.
const FixtureJSON = `{
  "id": "c1",
  "title": "Intro to Go",
  "modules": [
    {
      "id": "m-a",
      "title": "Basics",
      "lessons": [
        {"id": "l-a1", "title": "Hello", "duration_minutes": 5},
        {"id": "l-a2", "title": "Types", "duration_minutes": 10}
      ]
    },
    {
      "id": "m-b",
      "title": "Concurrency",
      "lessons": [
        {"id": "l-b1", "title": "Goroutines", "duration_minutes": 15}
      ],
      "quiz": {
        "id": "q-b",
        "questions": [
          {"id": "qq-1", "text": "What starts a goroutine?", "options": [
            {"id": "a1", "value": "go", "answer": true},
            {"id": "a2", "value": "run", "answer": false}
          ]},
          {"id": "qq-2", "text": "What synchronizes goroutines?", "options": [
            {"id": "b1", "value": "print", "answer": false},
            {"id": "b2", "value": "channel", "answer": true}
          ]}
        ]
      }
    }
  ]
}`
