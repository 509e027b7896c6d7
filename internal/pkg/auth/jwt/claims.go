package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the
// messaging service. It includes standard claims required by the JWT
// specification and the marketplace user id used to bind a WebSocket
// connection to an identity.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric marketplace account id of the token holder. It is the
	// identity bound to a WebSocket connection and the identity the polling API
	// resolves conversations for.
	UserID int64 `json:"user_id"`
}
