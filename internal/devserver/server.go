// Package devserver is a small in-memory course backend serving the REST
// surface the remote client talks to. It is meant for local runs and end to
// end tests, not production: state lives in memory and is lost on exit.
package devserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/quiz"
)

// Options configures a Server.
type Options struct {
	// Course is served as the only course. It must carry its quizzes with
	// answer flags so submissions can be scored.
	Course *course.Course

	// Token, when set, is required as a bearer token on every request.
	Token string

	// RevealAnswers keeps answer flags in quiz payloads. By default they
	// are stripped and only server-side scoring is possible.
	RevealAnswers bool

	// StringScores encodes submit scores as JSON strings, the way some
	// legacy backends do.
	StringScores bool

	Evaluator      quiz.Evaluator
	Logger         *log.Logger
	DisableReqLogs bool
}

// Server serves one course. It is safe for concurrent use.
type Server struct {
	opts Options
	app  *echo.Echo

	mu        sync.Mutex
	completed map[course.ModuleID]bool
	puts      map[course.ModuleID]int
}

var _ http.Handler = (*Server)(nil)

// New creates a Server for opts.Course. The course is copied.
func New(opts Options) (*Server, error) {
	if err := course.Validate(opts.Course); err != nil {
		return nil, err
	}
	opts.Course = opts.Course.DeepCopy()

	s := &Server{
		opts:      opts,
		app:       echo.New(),
		completed: make(map[course.ModuleID]bool),
		puts:      make(map[course.ModuleID]int),
	}
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	if s.opts.Logger != nil {
		s.app.Logger = s.opts.Logger
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	s.app.HTTPErrorHandler = appHTTPErrorHandler

	var mws []echo.MiddlewareFunc
	if s.opts.Token != "" {
		mws = append(mws, bearerAuth(s.opts.Token))
	}
	mws = append(mws, s.requireCourse)
	registerCourseAPI(s.app.Group("/courses/:courseId", mws...), s)
}

// Start listens on addr until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) Start(addr string) error {
	s.app.Logger.Infof("serving course %s on %s", s.opts.Course.ID, addr)
	if err := s.app.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Completed reports the stored completion flag of a module.
func (s *Server) Completed(id course.ModuleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[id]
}

// SetCompleted sets the stored completion flag of a module.
func (s *Server) SetCompleted(id course.ModuleID, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = done
}

// PutCount returns how many completion updates the module received.
func (s *Server) PutCount(id course.ModuleID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[id]
}

// requireCourse rejects requests for any course but the served one.
func (s *Server) requireCourse(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if course.CourseID(c.Param("courseId")) != s.opts.Course.ID {
			return errCourseNotFound
		}
		return next(c)
	}
}

func bearerAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return key == token, nil
		},
		ErrorHandler: func(error, echo.Context) error {
			return errUnauthorized
		},
	})
}
