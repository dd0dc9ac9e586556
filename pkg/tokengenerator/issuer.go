package tokengenerator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tendant/loginapp/pkg/errors"
)

type EventType string

const (
	TokenGenerated EventType = "token_generated"
	TokenExpired   EventType = "token_expired"
)

// Subject is the identity a token is issued for.
type Subject struct {
	ID   string
	Org  string
	Name string
	Role string
}

// Event describes a token lifecycle change. Subject and ExpiresAt are set
// for TokenGenerated only.
type Event struct {
	Type      EventType
	Token     string
	Subject   Subject
	ExpiresAt time.Time
}

// Listener receives token events. Listeners run synchronously in
// registration order.
type Listener func(ctx context.Context, event Event)

// Token is an issued access token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer issues access tokens, tracks the live ones and announces their
// lifecycle to listeners.
type Issuer struct {
	generator TokenGenerator
	expiry    time.Duration
	now       func() time.Time

	mu        sync.Mutex
	live      map[string]time.Time
	listeners []Listener
}

type IssuerOption func(*Issuer)

func WithExpiry(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d > 0 {
			i.expiry = d
		}
	}
}

func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(generator TokenGenerator, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		generator: generator,
		expiry:    DefaultAccessTokenExpiry,
		now:       time.Now,
		live:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

const (
	DefaultAccessTokenExpiry = 15 * time.Minute
	DefaultSweepInterval     = time.Minute
)

func (i *Issuer) AddListener(l Listener) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, l)
}

// Generate issues a token for subject and emits TokenGenerated.
func (i *Issuer) Generate(ctx context.Context, subject Subject) (Token, error) {
	value, expiresAt, err := i.generator.GenerateToken(subject, i.expiry)
	if err != nil {
		return Token{}, errors.InternalWrap(err, "failed to generate token")
	}

	i.mu.Lock()
	i.live[value] = expiresAt
	i.mu.Unlock()

	i.emit(ctx, Event{Type: TokenGenerated, Token: value, Subject: subject, ExpiresAt: expiresAt})
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// Expire revokes a live token and emits TokenExpired.
func (i *Issuer) Expire(ctx context.Context, token string) error {
	i.mu.Lock()
	_, ok := i.live[token]
	delete(i.live, token)
	i.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrCodeTokenInvalid, "token is not live")
	}
	i.emit(ctx, Event{Type: TokenExpired, Token: token})
	return nil
}

// IsLive reports whether token was issued here and has not expired.
func (i *Issuer) IsLive(token string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	expiresAt, ok := i.live[token]
	return ok && i.now().Before(expiresAt)
}

// Sweep expires every tracked token past its expiry and returns how many
// were expired.
func (i *Issuer) Sweep(ctx context.Context) int {
	now := i.now()

	i.mu.Lock()
	var expired []string
	for token, expiresAt := range i.live {
		if !now.Before(expiresAt) {
			expired = append(expired, token)
			delete(i.live, token)
		}
	}
	i.mu.Unlock()

	for _, token := range expired {
		i.emit(ctx, Event{Type: TokenExpired, Token: token})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (i *Issuer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Warn("Invalid token sweep interval, using default", "interval", interval, "default", DefaultSweepInterval)
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := i.Sweep(ctx); n > 0 {
				slog.Debug("Expired tokens", "count", n)
			}
		}
	}
}

func (i *Issuer) emit(ctx context.Context, event Event) {
	i.mu.Lock()
	listeners := make([]Listener, len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	for _, l := range listeners {
		l(ctx, event)
	}
}
