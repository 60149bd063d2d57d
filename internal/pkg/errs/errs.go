/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, an error kind, a user-friendly message, and an HTTP status code
for unified error reporting over both websocket envelopes and HTTP responses.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"floritechat/internal/pkg/logx"
)

// Kind classifies an error for clients. It is derived from the code range.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// CustomError is the custom error structure used throughout the application.
// It wraps the Go error interface, adding a business code, a kind and an HTTP status code.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind is the client-facing error class.
	Kind Kind

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface. It returns a formatted
// error string containing the error code, kind, and message.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s): %s", e.Code, e.Kind, e.Message)
}

// KindOf maps an error code to its kind.
func KindOf(code int) Kind {
	switch {
	case code >= 1000 && code < 2000:
		return KindValidation
	case code >= 3000 && code < 4000:
		return KindAuth
	case code >= 4000 && code < 5000:
		return KindNotFound
	case code > 5100 && code < 5200:
		return KindUpstream
	default:
		return KindInternal
	}
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter allows for formatting arguments (printf-style) to be supplied
// for the error message. If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Kind:    KindInternal,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr
	customErr.Kind = KindOf(code)

	if customErr.Status == 0 {
		switch customErr.Kind {
		case KindAuth:
			customErr.Status = http.StatusForbidden
		case KindNotFound:
			customErr.Status = http.StatusNotFound
		default:
			customErr.Status = http.StatusBadRequest
		}
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(
				originalErr,
				"Handling ErrUnknown with underlying error",
			)
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	} else if strings.Contains(customErr.Message, "%s") {
		customErr.Message = strings.ReplaceAll(customErr.Message, "%s", "")
	}

	return &customErr
}
