/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005

	// ErrUnknownAction indicates that the requested polling API action does not exist.
	ErrUnknownAction = 1006
)

// 2xxx: WebSocket Protocol Errors (fatal per connection, never per process)
const (
	// ErrHandshakeFailed indicates that the HTTP upgrade request was missing or
	// carried an invalid Sec-WebSocket-Key header.
	ErrHandshakeFailed = 2001

	// ErrMalformedFrame indicates a truncated or otherwise malformed WebSocket frame.
	ErrMalformedFrame = 2002

	// ErrFrameTooLarge indicates that a frame declared a payload above the configured maximum.
	ErrFrameTooLarge = 2003

	// ErrInvalidPayload indicates that a decoded frame carried JSON that does not
	// match the expected application schema. The connection stays open.
	ErrInvalidPayload = 2004
)

// 3xxx: Authentication and Session Errors
const (
	// ErrNotAuthenticated indicates that a connection attempted to send a chat
	// message before binding a user identity.
	ErrNotAuthenticated = 3001

	// ErrInvalidToken indicates that the auth frame carried an invalid or expired token.
	ErrInvalidToken = 3002

	// ErrUnauthorized indicates a polling API request without a valid identity.
	ErrUnauthorized = 3003
)

// 4xxx: Capacity and Transport Errors
const (
	// ErrServerFull indicates that the connection cap has been reached and new
	// accepts are refused until capacity frees.
	ErrServerFull = 4001

	// ErrConnectionClosed indicates a read or write against a connection that is
	// already in the closed state.
	ErrConnectionClosed = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistenceFailed indicates that the message store rejected a write.
	ErrPersistenceFailed = 5001
)
