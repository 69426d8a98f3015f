package port

import "github.com/pvolkov/accounts-service/internal/core/domain"

// PasswordHasher is the one-way credential primitive. Compare must run in
// constant time with respect to the stored hash.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, encoded string) (bool, error)
}

// SessionClaims is the account view embedded into a signed session token.
type SessionClaims struct {
	AccountID string      `json:"sub"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Surname   string      `json:"surname"`
	Age       int         `json:"age"`
	Role      domain.Role `json:"role"`
	CreatedAt int64       `json:"account_created_at"`
}

// TokenSigner signs session claims into an opaque bearer token and validates
// incoming tokens. Expiry is attached and enforced by the signer.
type TokenSigner interface {
	Sign(claims SessionClaims) (string, error)
	Verify(token string) (*SessionClaims, error)
}
