/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error
interface and carries a business code, a client-friendly message, and the HTTP
status used when the error surfaces through the polling API.
*/
package errs

import (
	"fmt"
	"net/http"

	"estatechat/internal/pkg/logx"
)

// CustomError is the error shape used throughout the application. The Code is
// what clients branch on; the Message is what they show.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the client-friendly error description.
	Message string

	// Status is the HTTP status code used when this error is sent over the
	// polling API. Socket-only errors leave it zero.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError returns the CustomError registered for code. An unregistered code
// is itself a bug and degrades to ErrUnknown. When details carry an underlying
// error it is logged here, so call sites do not have to log and wrap both.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Underlying error", "code", customErr.Code)
		}
	}

	return &customErr
}

// IsProtocolError reports whether the code belongs to the 2xxx WebSocket
// protocol range. Protocol errors are fatal for the connection that produced
// them and must never terminate the server loop.
func IsProtocolError(code int) bool {
	return code >= 2000 && code < 3000
}
