package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/labstack/echo/v4"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders every error as the JSON error envelope. Anything
// not classified below becomes a 500 and its details stay in the logs.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", err)
	}
}

func errorResponse(err error) (int, transport.ErrorResponse) {
	body := transport.ErrorResponse{Success: false}

	var verr *service.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &verr):
		body.Message = "Validation failed"
		body.Errors = verr.Fields
		return http.StatusBadRequest, body
	case errors.As(err, &he):
		body.Message = httpErrorMessage(he)
		return he.Code, body
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInsufficientStock):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		code = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		body.Message = internalErrorMessage
	} else {
		body.Message = err.Error()
	}
	return code, body
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return internalErrorMessage
	}
	if he == echo.ErrNotFound {
		return "Route not found"
	}
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return fmt.Sprint(he.Message)
}
