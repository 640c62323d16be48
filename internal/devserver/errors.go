package devserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abhisek/coursetrack/internal/quiz"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid bearer token")
	errCourseNotFound = echo.NewHTTPError(http.StatusNotFound, "course not found")
	errModuleNotFound = echo.NewHTTPError(http.StatusNotFound, "module not found")
	errQuizNotFound   = echo.NewHTTPError(http.StatusNotFound, "quiz not found")
	errBadBody        = echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
)

// appHTTPErrorHandler renders every error as {"error": message}.
func appHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
		herr    *echo.HTTPError
		verr    *quiz.ValidationError
	)
	switch {
	case errors.As(err, &herr):
		if inner, ok := herr.Internal.(*echo.HTTPError); ok {
			herr = inner
		}
		code = herr.Code
		if m, ok := herr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case errors.As(err, &verr):
		code = http.StatusUnprocessableEntity
		message = verr.Error()
	default:
		c.Echo().Logger.Error(err)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": message})
	}
	if err != nil {
		c.Echo().Logger.Error(err)
	}
}
