package httperror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"
)

// Machine-parseable error codes carried alongside the HTTP status.
const (
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInvalidChallenge = "invalid_challenge"
	CodeError            = "error"
)

// HTTPError is the structured error rendered to clients as a JSON envelope
// of the form {"error": <message>, "code": <kind>, ...extras}.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	// Extras contains extra information about the error, flattened into the
	// rendered envelope.
	Extras map[string]any
	// Err is an optional field that can be used to wrap the original error to pass it forward.
	Err error
}

// ReportErrorFunc is a function type used to report unexpected errors.
type ReportErrorFunc func(ctx context.Context, err error, msg string)

type reportError struct {
	reportErrorFunc ReportErrorFunc
}

var defaultReportError = reportError{
	reportErrorFunc: func(ctx context.Context, err error, msg string) {
		if msg != "" {
			err = fmt.Errorf("%s: %w", msg, err)
		}
		log.Ctx(ctx).WithStack(err).Errorf("%+v", err)
	},
}

// SetDefaultReportErrorFunc sets a new default function to report unexpected errors.
func SetDefaultReportErrorFunc(fn ReportErrorFunc) {
	defaultReportError.reportErrorFunc = fn
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// WithCode overrides the machine code carried in the envelope.
func (e *HTTPError) WithCode(code string) *HTTPError {
	e.Code = code
	return e
}

// MarshalJSON flattens Extras into the top-level envelope next to the error
// message and code.
func (e *HTTPError) MarshalJSON() ([]byte, error) {
	envelope := make(map[string]any, len(e.Extras)+2)
	for k, v := range e.Extras {
		envelope[k] = v
	}
	envelope["error"] = e.Message
	if e.Code != "" {
		envelope["code"] = e.Code
	}
	return json.Marshal(envelope)
}

func (e *HTTPError) Render(w http.ResponseWriter) {
	httpjson.RenderStatus(w, e.StatusCode, e, httpjson.JSON)
}

func NewHTTPError(statusCode int, code, msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" && originalErr != nil && len(extras) == 0 {
		var hErr *HTTPError
		if errors.As(originalErr, &hErr) && (hErr.StatusCode == statusCode) {
			return hErr
		}
	}

	return &HTTPError{
		StatusCode: statusCode,
		Message:    msg,
		Code:       code,
		Extras:     extras,
		Err:        originalErr,
	}
}

func BadRequest(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "The request was invalid in some way."
	}
	return NewHTTPError(http.StatusBadRequest, CodeBadRequest, msg, originalErr, extras)
}

func Unauthorized(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "Not authorized."
	}
	return NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, msg, originalErr, extras)
}

func Forbidden(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "You don't have permission to perform this action."
	}
	return NewHTTPError(http.StatusForbidden, CodeForbidden, msg, originalErr, extras)
}

func NotFound(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "Resource not found."
	}
	return NewHTTPError(http.StatusNotFound, CodeNotFound, msg, originalErr, extras)
}

func Conflict(msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "The resource already exists."
	}
	return NewHTTPError(http.StatusConflict, CodeConflict, msg, originalErr, extras)
}

func InternalError(ctx context.Context, msg string, originalErr error, extras map[string]any) *HTTPError {
	if msg == "" {
		msg = "An internal error occurred while processing this request."
	}
	defaultReportError.reportErrorFunc(ctx, originalErr, msg)
	return NewHTTPError(http.StatusInternalServerError, CodeError, msg, originalErr, extras)
}

// FromHookError maps an error returned by an operator hook. A structured
// *HTTPError passes through verbatim; anything else is wrapped as a 400
// with the message preserved and no stack exposed.
func FromHookError(err error) *HTTPError {
	var hErr *HTTPError
	if errors.As(err, &hErr) {
		return hErr
	}
	return NewHTTPError(http.StatusBadRequest, CodeError, err.Error(), err, nil)
}
