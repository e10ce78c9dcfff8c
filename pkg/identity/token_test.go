package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(now time.Time) AccessTokenClaims {
	c := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "4b0c3e8e-7b1f-4a39-9d52-1c2f3a4b5c6d",
			Issuer:    "https://id.example/auth/v1",
			Audience:  []string{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		},
		Email: "wanjiku@example.co.ke",
		Role:  "authenticated",
	}
	return c
}

func TestVerify_AcceptsProviderToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := Mint("secret", testClaims(now))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	v := Verifier{Secret: "secret", Issuer: "https://id.example/auth/v1", Audience: "authenticated", Now: func() time.Time { return now }}
	got, err := v.Verify(s)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != "4b0c3e8e-7b1f-4a39-9d52-1c2f3a4b5c6d" || got.Email != "wanjiku@example.co.ke" {
		t.Fatalf("unexpected session: %#v", got)
	}
	if got.Role != RoleCustomer {
		t.Fatalf("provider role must not leak into app role, got %q", got.Role)
	}
}

func TestVerify_AdminFromAppMetadata(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := testClaims(now)
	c.AppMetadata.Role = RoleAdmin
	s, _ := Mint("secret", c)

	got, err := Verifier{Secret: "secret", Now: func() time.Time { return now }}.Verify(s)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.IsAdmin() {
		t.Fatalf("expected admin session")
	}
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Unix(1700000000, 0)

	expired := testClaims(now)
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))

	noExp := testClaims(now)
	noExp.ExpiresAt = nil

	noSub := testClaims(now)
	noSub.Subject = ""

	wrongAud := testClaims(now)
	wrongAud.Audience = []string{"anon"}

	cases := map[string]struct {
		claims AccessTokenClaims
		secret string
	}{
		"expired":      {expired, "secret"},
		"no exp":       {noExp, "secret"},
		"no subject":   {noSub, "secret"},
		"wrong aud":    {wrongAud, "secret"},
		"wrong secret": {testClaims(now), "other"},
	}

	v := Verifier{Secret: "secret", Audience: "authenticated", Now: func() time.Time { return now }}
	for name, tc := range cases {
		s, err := Mint(tc.secret, tc.claims)
		if err != nil {
			t.Fatalf("%s: mint: %v", name, err)
		}
		if _, err := v.Verify(s); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := v.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}
}
