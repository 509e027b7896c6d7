/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

It defines the unified JSON envelope returned by the polling API, including a success flag,
an optional data payload, and structured error information, and offers convenient wrappers
for both success and error responses.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"estatechat/internal/pkg/errs"
	"estatechat/internal/pkg/logx"
)

// JSONResponse defines the standardized JSON envelope returned by the polling API.
// Clients branch on Success; Data carries the payload, Error the failure detail.
type JSONResponse struct {
	// Success reports whether the request was handled without error.
	Success bool `json:"success"`

	// Data is the optional response payload (e.g., the message list for get_messages).
	Data any `json:"data,omitempty"`

	// Error carries the business code and client-friendly message on failure.
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the structured error detail included in failed responses.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Success: true,
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := JSONResponse{
		Success: false,
		Error: &ErrorBody{
			Code:    customErr.Code,
			Message: customErr.Message,
		},
	}
	RespondJSON(w, r, customErr.Status, res)
}
