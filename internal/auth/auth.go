// Package auth issues and verifies operator bearer tokens (spec.md §4.7).
// Credential hashing uses bcrypt (golang.org/x/crypto), token issuance uses
// golang-jwt/jwt — the login/session mechanics themselves are out of scope
// per spec.md §1, but the access-control predicate on each request is not,
// so this package exists to compute that predicate.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

const tokenTTL = 12 * time.Hour

type Claims struct {
	OperatorID int64  `json:"oid"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func HashCredential(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", apierr.Wrap(apierr.KindUnknown, "failed to hash credential", err)
	}
	return string(hash), nil
}

func VerifyCredential(hash, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return apierr.Unauthenticated("invalid credentials")
	}
	return nil
}

func (ts *TokenService) Issue(operator *shared.Operator) (string, error) {
	now := time.Now()
	claims := Claims{
		OperatorID: operator.ID,
		Role:       operator.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", apierr.Wrap(apierr.KindUnknown, "failed to sign token", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, returning its claims. Expired
// or malformed tokens surface as Unauthenticated (spec.md §4.7 "401 on
// token expiry").
func (ts *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apierr.Unauthenticated("invalid or expired token")
	}
	return claims, nil
}

func IsAdmin(claims *Claims) bool {
	return claims.Role == shared.RoleAdmin
}
