// Package auth validates the handshake credential presented on connect.
// Credentials are HS256 JWTs minted by the marketplace on login; the chat
// server only verifies them.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rentora/chatd/internal/chaterr"
)

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates handshake tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token string and returns the user id it
// identifies. Any signature, expiry or format problem is an
// authentication error; no distinction is leaked to the client.
func (v *Verifier) Verify(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, chaterr.Authentication("missing credential")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, chaterr.Authentication("invalid credential")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, chaterr.Authentication("invalid credential")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, chaterr.Authentication("invalid subject")
	}
	return userID, nil
}

// Mint signs a token for a user. Used by the development /token endpoint
// and the mktoken CLI; production tokens come from the marketplace.
func Mint(secret string, userID int64, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "chatd",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
