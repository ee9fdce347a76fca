package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims carried by an access token.
// Access tokens are short-lived, signed RS256, and validated by
// signature only (no database hit).
type AccessClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// RefreshClaims are the claims carried by a refresh token. The backing
// record id is duplicated as both the jti and a custom id claim, so the
// revocation lookup needs no second round trip.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Role     Role  `json:"role"`
	RecordID int64 `json:"id"`
}

// UserID returns the subject claim parsed as a numeric user id.
func (c *AccessClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// UserID returns the subject claim parsed as a numeric user id.
func (c *RefreshClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// ParseAccessToken validates an RS256 access token against the given key
// resolver and returns its claims. It checks the signature, expiry, issuer,
// and required fields.
func ParseAccessToken(tokenString string, keyFn jwt.Keyfunc, issuer string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, keyFn,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}

// ParseRefreshToken validates an HS256 refresh token against the shared
// secret and returns its claims. Revocation is a separate concern checked
// against the token store.
func ParseRefreshToken(tokenString, secret, issuer string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.RecordID == 0 {
		return nil, fmt.Errorf("%w: missing token record id", ErrTokenInvalid)
	}

	return claims, nil
}
