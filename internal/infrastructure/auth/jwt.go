package auth

import (
	"errors"
	"strings"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the fields the session issuer puts in its tokens. Minting
// happens outside this service; it only verifies.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secretKey []byte
	issuer    string
}

// NewVerifier checks HS256 tokens signed with secret. An empty issuer skips
// the iss check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secretKey: []byte(secret), issuer: issuer}
}

// Verify parses a token (with or without a "Bearer " prefix) into the caller
// identity.
func (v *Verifier) Verify(raw string) (chat.Identity, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 6 && strings.EqualFold(raw[:6], "bearer") {
		if rest := raw[6:]; rest == "" || rest[0] == ' ' {
			raw = strings.TrimSpace(rest)
		}
	}
	if raw == "" {
		return chat.Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return chat.Identity{}, ErrExpiredToken
		}
		return chat.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return chat.Identity{}, ErrInvalidToken
	}
	return chat.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
