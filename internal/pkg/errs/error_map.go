/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownAction:        {Code: ErrUnknownAction, Message: "Unknown action.", Status: http.StatusBadRequest},

	// 2xxx: WebSocket Protocol Errors
	ErrHandshakeFailed: {Code: ErrHandshakeFailed, Message: "WebSocket handshake failed.", Status: http.StatusBadRequest},
	ErrMalformedFrame:  {Code: ErrMalformedFrame, Message: "Malformed WebSocket frame."},
	ErrFrameTooLarge:   {Code: ErrFrameTooLarge, Message: "Frame payload too large."},
	ErrInvalidPayload:  {Code: ErrInvalidPayload, Message: "Invalid message payload."},

	// 3xxx: Authentication and Session Errors
	ErrNotAuthenticated: {Code: ErrNotAuthenticated, Message: "not authenticated"},
	ErrInvalidToken:     {Code: ErrInvalidToken, Message: "Invalid or expired token.", Status: http.StatusUnauthorized},
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 4xxx: Capacity and Transport Errors
	ErrServerFull:       {Code: ErrServerFull, Message: "Server is at capacity. Please try again later.", Status: http.StatusServiceUnavailable},
	ErrConnectionClosed: {Code: ErrConnectionClosed, Message: "Connection closed."},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistenceFailed: {Code: ErrPersistenceFailed, Message: "Failed to save message. Please try again.", Status: http.StatusInternalServerError},
}
