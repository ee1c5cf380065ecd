package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature;
// the backend is the one that verifies. ok is false for opaque tokens or
// tokens without exp.
func TokenExpiry(tokenStr string) (exp time.Time, ok bool) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	date, err := token.Claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Expired reports whether tokenStr is a JWT whose exp has passed.
func Expired(tokenStr string, now time.Time) bool {
	exp, ok := TokenExpiry(tokenStr)
	return ok && !now.Before(exp)
}
