package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vocaciona/apiserver/types"
)

// DefaultTokenTTL is the validity window of issued session tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrNoSigningKey means no signing secret was configured.
	ErrNoSigningKey = errors.New("token signing key is not configured")
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired means the token was valid but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the identity claims embedded in a session token.
type Claims struct {
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
	jwt.RegisteredClaims
}

// Issuer produces and validates signed session tokens. It is stateless and
// safe for concurrent use; issued tokens are never persisted server-side.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer from a signing secret. The secret is
// required; supplying an empty one is a startup configuration error.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a session token asserting the user's identity and role.
func (i *Issuer) Issue(user types.User) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	claims := Claims{
		Email:  user.Email,
		Nombre: user.Name,
		Rol:    user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and validates a session token, returning its claims.
// Expired tokens and otherwise-invalid tokens are distinct errors.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
