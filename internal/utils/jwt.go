package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token purposes. Every issued token carries exactly one purpose claim and
// callers must reject a token whose purpose does not match the operation:
// a reset token presented as a session token is not a valid session.
const (
	PurposeSession = "session"
	PurposeRefresh = "refresh"
	PurposeReset   = "reset"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and
	// unexpected signing methods.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the embedded expiry has passed.
	// Callers treat both errors as "not authorized"; the distinction
	// exists for diagnostics only.
	ErrTokenExpired = errors.New("token expired")
)

// SignedToken carries a serialized JWT together with its UTC expiry so
// handlers can report the expiration to clients without re-parsing.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// TokenClaims is the decoded view of a verified token.
type TokenClaims struct {
	Subject uint64 // user id the token was issued for
	Purpose string // session | refresh | reset
}

// IssueToken builds and signs an HS256 JWT for a user. The claims are the
// subject (sub), the token purpose, issued-at (iat) and expiry (exp). The
// secret is process-wide configuration injected by the caller; it is never
// read from package state.
func IssueToken(secret string, userID uint64, purpose string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": purpose,
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a signed token. It returns
// ErrTokenExpired when the token is past its expiry and ErrTokenInvalid
// for every other failure (bad signature, wrong algorithm, garbage input).
// Purpose is NOT checked here; callers compare TokenClaims.Purpose against
// the purpose they expect.
func VerifyToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; otherwise a
		// crafted "none" or RSA token could slip through.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrTokenInvalid
	}

	out := TokenClaims{}
	switch sub := claims["sub"].(type) {
	case float64:
		// JSON numbers decode as float64.
		out.Subject = uint64(sub)
	default:
		return TokenClaims{}, ErrTokenInvalid
	}
	purpose, ok := claims["purpose"].(string)
	if !ok || purpose == "" {
		return TokenClaims{}, ErrTokenInvalid
	}
	out.Purpose = purpose
	return out, nil
}
