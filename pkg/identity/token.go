package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var ErrInvalidToken = errors.New("invalid access token")

// AccessTokenClaims mirrors what the identity provider puts in its access tokens.
// Only the fields this service relies on are decoded.
type AccessTokenClaims struct {
	jwt.RegisteredClaims

	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"` // provider role, e.g. "authenticated"
	AppMetadata struct {
		Role string `json:"role,omitempty"`
	} `json:"app_metadata"`
}

// Session is the verified caller. It is immutable for the lifetime of a request.
type Session struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

type Verifier struct {
	Secret   string
	Issuer   string
	Audience string

	// Now is overridable in tests.
	Now func() time.Time
}

// Verify validates an HS256 access token and returns the session it describes.
func (v Verifier) Verify(tokenString string) (*Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}
	if v.Secret == "" {
		return nil, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	claims := &AccessTokenClaims{}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role := RoleCustomer
	if claims.AppMetadata.Role == RoleAdmin {
		role = RoleAdmin
	}

	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Mint signs a token the way the provider would. Used by dev tools and tests.
func Mint(secret string, claims AccessTokenClaims) (string, error) {
	if secret == "" {
		return "", errors.New("missing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
