package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/abhisek/coursetrack/internal/course"
)

const (
	modulesPath    = "/courses/{courseId}/modules"
	modulePath     = "/courses/{courseId}/modules/{moduleId}"
	quizListPath   = "/courses/{courseId}/modules/{moduleId}/quiz"
	quizDetailPath = "/courses/{courseId}/modules/{moduleId}/quiz/{quizId}"
	quizSubmitPath = "/courses/{courseId}/modules/{moduleId}/quiz/{quizId}/submit"
)

// Client implements Adapter over the course REST backend.
type Client struct {
	http *resty.Client
}

var _ Adapter = (*Client)(nil)

// NewClient creates a Client. Every request carries the bearer token when
// one is configured.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		h.SetAuthToken(cfg.Token)
	}
	return &Client{http: h}
}

func (c *Client) FetchCourse(ctx context.Context, courseID course.CourseID) (*course.Course, map[course.ModuleID]bool, error) {
	raw, err := c.do(ctx, OpFetchModules, http.MethodGet, modulesPath, pathParams(courseID, "", ""), nil)
	if err != nil {
		return nil, nil, err
	}
	var records []moduleRecord
	if err := decode(moduleListSchema, raw, &records); err != nil {
		return nil, nil, &Error{Kind: KindServerError, Op: OpFetchModules, Err: err}
	}
	crs, done := toCourse(courseID, records)
	return crs, done, nil
}

func (c *Client) FetchModuleCompletion(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]bool, error) {
	_, done, err := c.FetchCourse(ctx, courseID)
	return done, err
}

func (c *Client) FetchModuleQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) (*course.Quiz, error) {
	raw, err := c.do(ctx, OpFetchQuiz, http.MethodGet, quizListPath, pathParams(courseID, moduleID, ""), nil)
	if err != nil {
		return nil, err
	}
	var summaries []quizSummary
	if err := decode(quizListSchema, raw, &summaries); err != nil {
		return nil, &Error{Kind: KindServerError, Op: OpFetchQuiz, Err: err}
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	quizID := course.QuizID(summaries[0].ID)
	raw, err = c.do(ctx, OpFetchQuiz, http.MethodGet, quizDetailPath, pathParams(courseID, moduleID, quizID), nil)
	if err != nil {
		return nil, err
	}
	var detail quizDetail
	if err := decode(quizDetailSchema, raw, &detail); err != nil {
		return nil, &Error{Kind: KindServerError, Op: OpFetchQuiz, Err: err}
	}
	return toQuiz(detail), nil
}

func (c *Client) PersistModuleCompletion(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error {
	_, err := c.do(ctx, OpPersistModule, http.MethodPut, modulePath, pathParams(courseID, moduleID, ""), completionRequest{Completed: true})
	return err
}

func (c *Client) SubmitQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission) (Score, error) {
	raw, err := c.do(ctx, OpSubmitQuiz, http.MethodPost, quizSubmitPath, pathParams(courseID, moduleID, quizID), toAnswers(sub))
	if err != nil {
		return Score{}, err
	}
	var resp submitResponse
	if err := decode(submitResponseSchema, raw, &resp); err != nil {
		return Score{}, &Error{Kind: KindServerError, Op: OpSubmitQuiz, Err: err}
	}
	score := Score{CorrectCount: int(resp.Score), TotalQuestions: int(resp.Total)}
	if score.CorrectCount < 0 || score.CorrectCount > score.TotalQuestions {
		return Score{}, &Error{
			Kind: KindServerError,
			Op:   OpSubmitQuiz,
			Err:  fmt.Errorf("impossible score %d/%d", score.CorrectCount, score.TotalQuestions),
		}
	}
	return score, nil
}

// do executes a request and maps transport failures and non-2xx statuses
// onto *Error.
func (c *Client) do(ctx context.Context, op Op, method, path string, params map[string]string, body any) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	req := c.http.R().SetContext(ctx).SetPathParams(params)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &Error{
			Kind:   kindForStatus(code),
			Op:     op,
			Status: code,
			Err:    fmt.Errorf("unexpected response: %s", truncate(resp.String(), 200)),
		}
	}
	return resp.Body(), nil
}

func pathParams(courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID) map[string]string {
	p := map[string]string{"courseId": string(courseID)}
	if moduleID != "" {
		p["moduleId"] = string(moduleID)
	}
	if quizID != "" {
		p["quizId"] = string(quizID)
	}
	return p
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
