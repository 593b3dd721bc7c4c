package apperr

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by repositories and services when the requested
// record does not exist.
var ErrNotFound = errors.New("not found")

// NotFound wraps ErrNotFound with a description of what was missing.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// ValidationError reports a rejected input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InternalMessage is the only detail clients see for unexpected failures.
const InternalMessage = "internal server error"

// Body is the JSON error envelope returned by the API.
type Body struct {
	Detail string `json:"detail"`
}

// StatusOf maps an error to its HTTP status and client-visible message.
func StatusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	case IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case IsValidation(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, InternalMessage
	}
}

// HTTPErrorHandler renders errors as {"detail": ...}. Server errors are logged
// with the request id and never leak their cause to the client.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := StatusOf(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, Body{Detail: msg})
	}
}

// CheckObject rejects a JSON document that is neither absent, null nor an
// object.
func CheckObject(field string, raw []byte) error {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || string(b) == "null" || b[0] == '{' {
		return nil
	}
	return Validation(field, "must be a JSON object")
}

// PathParam returns the named path parameter decoded. echo routes on the raw
// path when the request has one, so escapes such as %2F reach the handler
// undecoded. A malformed or empty value is a 400.
func PathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath != "" {
		var err error
		if v, err = url.PathUnescape(v); err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
		}
	}
	if v == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}
