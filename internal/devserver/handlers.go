package devserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/abhisek/coursetrack/internal/course"
)

type moduleJSON struct {
	ID        course.ModuleID `json:"id"`
	Title     string          `json:"title,omitempty"`
	Completed bool            `json:"completed"`
	Lessons   []course.Lesson `json:"lessons"`
}

type quizSummaryJSON struct {
	ID course.QuizID `json:"id"`
}

type completionJSON struct {
	Completed *bool `json:"completed"`
}

type answerJSON struct {
	QuestionID course.QuestionID `json:"question_id"`
	OptionID   course.OptionID   `json:"option_id"`
}

func registerCourseAPI(g *echo.Group, s *Server) {
	g.GET("/modules", s.listModules)
	g.PUT("/modules/:moduleId", s.updateModule)
	g.GET("/modules/:moduleId/quiz", s.listQuizzes)
	g.GET("/modules/:moduleId/quiz/:quizId", s.getQuiz)
	g.POST("/modules/:moduleId/quiz/:quizId/submit", s.submitQuiz)
}

func (s *Server) listModules(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]moduleJSON, 0, len(s.opts.Course.Modules))
	for _, m := range s.opts.Course.Modules {
		lessons := m.Lessons
		if lessons == nil {
			lessons = []course.Lesson{}
		}
		out = append(out, moduleJSON{
			ID:        m.ID,
			Title:     m.Title,
			Completed: s.completed[m.ID],
			Lessons:   lessons,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// updateModule stores the completion flag. Repeating the same update is a
// no-op.
func (s *Server) updateModule(c echo.Context) error {
	m, err := s.module(c)
	if err != nil {
		return err
	}
	var body completionJSON
	if err := c.Bind(&body); err != nil || body.Completed == nil {
		return errBadBody
	}

	s.mu.Lock()
	s.completed[m.ID] = *body.Completed
	s.puts[m.ID]++
	s.mu.Unlock()

	return c.JSON(http.StatusOK, moduleJSON{ID: m.ID, Title: m.Title, Completed: *body.Completed, Lessons: m.Lessons})
}

func (s *Server) listQuizzes(c echo.Context) error {
	m, err := s.module(c)
	if err != nil {
		return err
	}
	out := []quizSummaryJSON{}
	if m.Quiz != nil {
		out = append(out, quizSummaryJSON{ID: m.Quiz.ID})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getQuiz(c echo.Context) error {
	q, err := s.quiz(c)
	if err != nil {
		return err
	}
	if !s.opts.RevealAnswers {
		q = q.WithoutAnswers()
	}
	return c.JSON(http.StatusOK, q)
}

func (s *Server) submitQuiz(c echo.Context) error {
	q, err := s.quiz(c)
	if err != nil {
		return err
	}
	var answers []answerJSON
	if err := c.Bind(&answers); err != nil {
		return errBadBody
	}
	sub := make(course.Submission, len(answers))
	for _, a := range answers {
		sub[a.QuestionID] = a.OptionID
	}

	res, err := s.opts.Evaluator.Evaluate(q, sub)
	if err != nil {
		return fmt.Errorf("score quiz %s: %w", q.ID, err)
	}

	if s.opts.StringScores {
		return c.JSON(http.StatusOK, echo.Map{
			"score":                 strconv.Itoa(res.CorrectCount),
			"total_no_of_questions": strconv.Itoa(res.TotalQuestions),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"score":                 res.CorrectCount,
		"total_no_of_questions": res.TotalQuestions,
	})
}

func (s *Server) module(c echo.Context) (*course.Module, error) {
	m := s.opts.Course.Module(course.ModuleID(c.Param("moduleId")))
	if m == nil {
		return nil, errModuleNotFound
	}
	return m, nil
}

func (s *Server) quiz(c echo.Context) (*course.Quiz, error) {
	m, err := s.module(c)
	if err != nil {
		return nil, err
	}
	if m.Quiz == nil || m.Quiz.ID != course.QuizID(c.Param("quizId")) {
		return nil, errQuizNotFound
	}
	return m.Quiz, nil
}
