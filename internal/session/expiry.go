package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry reads the exp claim of the current access token without
// verifying its signature. ok is false when there is no token or it is not a JWT.
func (s *Store) AccessTokenExpiry() (expiresAt time.Time, ok bool) {
	access, _ := s.Tokens()
	if access == "" {
		return time.Time{}, false
	}
	return tokenExpiry(access)
}

func tokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
