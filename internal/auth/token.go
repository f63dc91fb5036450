package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongPurpose = errors.New("token issued for a different purpose")
)

// Token purposes. A session token lives in the auth cookie; a ticket is a
// short-lived single-purpose token minted for websocket admission so the
// live channel never has to trust a bare cookie on the upgrade request.
const (
	PurposeSession = "session"
	PurposeTicket  = "ws-ticket"
)

// Claims carries the authenticated user id alongside the registered claim set.
type Claims struct {
	UserID  int64  `json:"uid"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func sign(userID int64, purpose string, secret []byte, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parse(tokenString, purpose string, secret []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return 0, ErrInvalidToken
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return 0, ErrWrongPurpose
	}

	return claims.UserID, nil
}

// SignSession issues the JWT stored in the auth cookie.
func SignSession(userID int64, secret []byte, ttl time.Duration) (string, error) {
	return sign(userID, PurposeSession, secret, ttl)
}

// ParseSession validates a session token and returns the user id it carries.
func ParseSession(tokenString string, secret []byte) (int64, error) {
	return parse(tokenString, PurposeSession, secret)
}

// SignTicket issues a websocket admission ticket. Keep ttl short: the ticket
// is meant to be redeemed immediately after it is minted.
func SignTicket(userID int64, secret []byte, ttl time.Duration) (string, error) {
	return sign(userID, PurposeTicket, secret, ttl)
}

// ParseTicket validates an admission ticket. A session token is rejected here
// even though it is signed with the same secret.
func ParseTicket(tokenString string, secret []byte) (int64, error) {
	return parse(tokenString, PurposeTicket, secret)
}
