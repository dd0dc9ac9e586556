package sessions

import (
	"context"
	"strings"
	"time"
)

// Identity is what the registry knows about a logged-in user.
type Identity struct {
	ID   string `json:"id"`
	Org  string `json:"org"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ActiveSession maps a session key to the identity that owns it.
// A zero ExpiresAt never expires.
type ActiveSession struct {
	Key       string    `json:"key"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s ActiveSession) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store holds active sessions. Every method is atomic for its key.
type Store interface {
	Put(ctx context.Context, session ActiveSession) error
	Get(ctx context.Context, key string) (ActiveSession, bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]ActiveSession, error)
}

// SessionKey returns the registry key for a bearer token: the lower-cased
// Authorization header value that carries it.
func SessionKey(token string) string {
	return HeaderKey("Bearer " + token)
}

// HeaderKey returns the registry key for an Authorization header value.
func HeaderKey(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}
