package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims Claims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() Claims {
	return Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "navshiksha",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier("secret", "navshiksha")
	token := sign(t, "secret", validClaims(), jwt.SigningMethodHS256)

	id, err := v.Verify("Bearer " + token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "ada@example.com" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret", "navshiksha")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	noSubject := validClaims()
	noSubject.Subject = ""

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"bearer only", "Bearer ", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", sign(t, "other", validClaims(), jwt.SigningMethodHS256), ErrInvalidToken},
		{"expired", sign(t, "secret", expired, jwt.SigningMethodHS256), ErrExpiredToken},
		{"wrong issuer", sign(t, "secret", wrongIssuer, jwt.SigningMethodHS256), ErrInvalidToken},
		{"no subject", sign(t, "secret", noSubject, jwt.SigningMethodHS256), ErrInvalidToken},
		{"wrong alg", sign(t, "secret", validClaims(), jwt.SigningMethodHS512), ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token); err != tc.want {
				t.Fatalf("Verify() err = %v, want %v", err, tc.want)
			}
		})
	}
}
