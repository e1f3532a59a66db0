package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is what a session is allowed to see
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Session is the per-client view state. Visitors carry RoleUser and no token.
type Session struct {
	Role      Role      `json:"role"`
	User      string    `json:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsAdmin reports whether the session passed the login gate
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

var ErrInvalidSession = errors.New("invalid session token")

type sessionClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies session tokens
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a signer. An empty secret is replaced by random
// bytes, which invalidates every token on restart.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}
	return &Sessions{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed admin token for user
func (s *Sessions) Issue(user string) (string, Session, error) {
	now := s.now()
	session := Session{Role: RoleAdmin, User: user, ExpiresAt: now.Add(s.ttl).Truncate(time.Second)}

	claims := sessionClaims{
		Role: session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user,
			Issuer:    ICSDomain,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, session, nil
}

// Parse verifies token and returns the session it carries
func (s *Sessions) Parse(token string) (Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ICSDomain),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Role != RoleAdmin && claims.Role != RoleUser {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrInvalidSession, claims.Role)
	}

	session := Session{Role: claims.Role, User: claims.Subject}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
