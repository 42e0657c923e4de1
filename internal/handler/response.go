// Package handler adapts HTTP requests to service calls and renders the
// JSON envelopes every endpoint shares.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/policy"
)

const requestTimeout = 5 * time.Second

// Envelope wraps every successful response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func okMessage(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: msg})
}

// reqCtx bounds service calls made on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Status maps an error kind to its HTTP status. Anonymous callers refused by
// the policy get 401 rather than 403.
func Status(err *apperr.Error) int {
	switch err.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		if err.Code == policy.CodeNotAuthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateReview, apperr.KindConflict, apperr.KindIntegrity:
		return http.StatusConflict
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fromHTTPError turns Echo's own errors (unknown route, bad body) into the
// taxonomy so they render like everything else.
func fromHTTPError(he *echo.HTTPError) *apperr.Error {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	switch he.Code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apperr.Validation("", msg).WithCode("PARSE_ERROR")
	case http.StatusUnauthorized:
		return apperr.Unauthorized(msg)
	case http.StatusForbidden:
		return apperr.PermissionDenied(msg)
	case http.StatusNotFound:
		return apperr.NotFound(msg)
	case http.StatusMethodNotAllowed:
		return &apperr.Error{Kind: apperr.KindValidation, Code: "METHOD_NOT_ALLOWED", Message: msg}
	}
	return apperr.Internal(he)
}

// ErrorHandler renders any error returned by a handler or middleware.
// Internal errors are logged with their cause and answered generically.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
		case errors.As(err, &he):
			ae = fromHTTPError(he)
		default:
			ae = apperr.Internal(err)
		}

		status := Status(ae)
		if he != nil && he.Code == http.StatusMethodNotAllowed {
			status = http.StatusMethodNotAllowed
		}
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Str("code", ae.Code).Msg("request failed")
		}

		body := ErrorEnvelope{Error: ErrorBody{Code: ae.Code, Message: ae.Message, FieldErrors: ae.Fields}}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}

// JSONSerializer is Echo's serializer backed by goccy/go-json.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	var ute *json.UnmarshalTypeError
	var se *json.SyntaxError
	switch {
	case errors.As(err, &ute):
		return apperr.Validation(ute.Field, "Incorrect type. Expected "+ute.Type.String()+".")
	case errors.As(err, &se):
		return apperr.Validation("", "Malformed JSON body.").WithCode("PARSE_ERROR")
	}
	return err
}
