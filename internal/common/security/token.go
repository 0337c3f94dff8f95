package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie jwtauth's TokenFromCookie looks at.
const SessionCookieName = "jwt"

// TokenAuthority signs and verifies the session tokens carried in the
// session cookie. One instance is built at startup and injected wherever
// tokens are minted or verified.
type TokenAuthority struct {
	JWTAuth *jwtauth.JWTAuth
	ttl     time.Duration
}

func NewTokenAuthority(key []byte, ttl time.Duration) *TokenAuthority {
	return &TokenAuthority{
		JWTAuth: jwtauth.New("HS256", key, nil),
		ttl:     ttl,
	}
}

// TTL is the lifetime stamped into issued tokens; the server-side session
// registry uses the same value so both expire together.
func (a *TokenAuthority) TTL() time.Duration { return a.ttl }

// GenerateSessionToken mints a signed token binding a user to a session id.
func (a *TokenAuthority) GenerateSessionToken(userID, sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"sid":     sessionID,
		"exp":     now.Add(a.ttl).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := a.JWTAuth.Encode(claims)
	return tokenString, err
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetSessionIDFromClaims(claims jwt.MapClaims) (string, error) {
	sid, ok := claims["sid"].(string)
	if !ok {
		return "", errors.New("sid claim is missing or not a string")
	}
	return sid, nil
}

// NewRandomToken returns a hex-encoded token from 32 bytes of crypto/rand,
// used for per-session anti-forgery values.
func NewRandomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
