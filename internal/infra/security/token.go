package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
)

var (
	// ErrTokenExpired indicates the token was valid but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates the token is malformed or its signature does not verify.
	ErrTokenInvalid = errors.New("token invalid")
)

type sessionTokenClaims struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Surname   string      `json:"surname"`
	Age       int         `json:"age"`
	Role      domain.Role `json:"role"`
	CreatedAt int64       `json:"account_created_at"`
	jwt.RegisteredClaims
}

// TokenManager implements port.TokenSigner with HMAC-SHA256 signed JWTs.
// Expiry is attached here; callers never manage it.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager. The secret must not be empty.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Sign embeds the session claims into a signed token.
func (m *TokenManager) Sign(claims port.SessionClaims) (string, error) {
	now := m.now().UTC()

	payload := sessionTokenClaims{
		Email:     claims.Email,
		Name:      claims.Name,
		Surname:   claims.Surname,
		Age:       claims.Age,
		Role:      claims.Role,
		CreatedAt: claims.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.AccountID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token and returns the embedded claims.
func (m *TokenManager) Verify(token string) (*port.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &sessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &port.SessionClaims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Surname:   claims.Surname,
		Age:       claims.Age,
		Role:      claims.Role,
		CreatedAt: claims.CreatedAt,
	}, nil
}

var _ port.TokenSigner = (*TokenManager)(nil)
