package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const resetTokenPurpose = "password_reset"

var (
	ErrInvalidResetToken = errors.New("auth: invalid reset token")
	ErrResetTokenExpired = errors.New("auth: reset token expired")
)

// ResetClaims are the JWT claims carried by a password reset token. The JWT
// is only the delivery envelope: ID points at the stored request row, and the
// row decides whether the token can still be spent.
type ResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetTokenIssuer signs and verifies password reset tokens.
type ResetTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokenIssuer(secret string, ttl time.Duration) *ResetTokenIssuer {
	return &ResetTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token referencing the stored request. The returned expiry
// matches what was persisted on the request row.
func (i *ResetTokenIssuer) Issue(requestID, accountID string) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := &ResetClaims{
		Purpose: resetTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        requestID,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, expiry and purpose. Anything off yields an
// invalid-token error; the caller still has to check the stored request.
func (i *ResetTokenIssuer) Parse(tokenString string) (*ResetClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrResetTokenExpired
		}
		return nil, ErrInvalidResetToken
	}

	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidResetToken
	}
	if claims.Purpose != resetTokenPurpose || claims.ID == "" {
		return nil, ErrInvalidResetToken
	}
	return claims, nil
}
