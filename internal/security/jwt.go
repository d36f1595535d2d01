package security

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

type AccessClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies short-lived access tokens with a symmetric
// secret. Verify fails soft: any invalid input yields (0, false) with no
// reason, so callers cannot build a validation oracle.
type TokenCodec struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

func NewTokenCodec(issuer, audience, secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{issuer: issuer, audience: audience, secret: []byte(secret), ttl: ttl}
}

func (c *TokenCodec) Issue(subjectID uint, now time.Time) (string, error) {
	claims := AccessClaims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(subjectID), 10),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *TokenCodec) Verify(raw string, now time.Time) (uint, bool) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return 0, false
	}
	if claims.TokenType != tokenTypeAccess {
		return 0, false
	}
	subjectID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || subjectID == 0 {
		return 0, false
	}
	return uint(subjectID), true
}

func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}
