package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/loginapp/pkg/config"
	"github.com/tendant/loginapp/pkg/errors"
	"github.com/tendant/loginapp/pkg/tokengenerator"
	"golang.org/x/exp/slices"
)

// Registry tracks which bearer tokens belong to which logged-in user.
// A key is present exactly while its token is live.
type Registry struct {
	store      Store
	adminRoles []string
}

func NewRegistry(store Store, adminRoles []string) *Registry {
	if len(adminRoles) == 0 {
		adminRoles = []string{config.DefaultAdminRole}
	}
	return &Registry{store: store, adminRoles: adminRoles}
}

func (r *Registry) OnTokenIssued(ctx context.Context, token string, identity Identity, expiresAt time.Time) error {
	if token == "" {
		return errors.InvalidInput("token", "must not be empty")
	}
	return r.store.Put(ctx, ActiveSession{
		Key:       SessionKey(token),
		Identity:  identity,
		ExpiresAt: expiresAt,
	})
}

func (r *Registry) OnTokenExpired(ctx context.Context, token string) error {
	return r.store.Delete(ctx, SessionKey(token))
}

// Lookup resolves an Authorization header value, matched case-insensitively.
func (r *Registry) Lookup(ctx context.Context, header string) (Identity, bool) {
	key := HeaderKey(header)
	if key == "" {
		return Identity{}, false
	}

	session, ok, err := r.store.Get(ctx, key)
	if err != nil {
		slog.Error("Failed looking up session", "err", err)
		return Identity{}, false
	}
	if !ok {
		return Identity{}, false
	}
	return session.Identity, true
}

func (r *Registry) ID(ctx context.Context, header string) string {
	identity, _ := r.Lookup(ctx, header)
	return identity.ID
}

func (r *Registry) Org(ctx context.Context, header string) string {
	identity, _ := r.Lookup(ctx, header)
	return identity.Org
}

func (r *Registry) Role(ctx context.Context, header string) string {
	identity, _ := r.Lookup(ctx, header)
	return identity.Role
}

// IsAdmin reports whether the caller's role is one of the admin roles.
func (r *Registry) IsAdmin(ctx context.Context, header string) bool {
	return config.IsAdminRole(r.Role(ctx, header), r.adminRoles)
}

// HandleTokenEvent keeps the registry in step with the token issuer.
// Store failures are logged so the token lifecycle is never interrupted.
func (r *Registry) HandleTokenEvent(ctx context.Context, event tokengenerator.Event) {
	switch event.Type {
	case tokengenerator.TokenGenerated:
		var identity Identity
		if err := copier.Copy(&identity, &event.Subject); err != nil {
			slog.Error("Failed mapping token subject", "err", err)
			return
		}
		if err := r.OnTokenIssued(ctx, event.Token, identity, event.ExpiresAt); err != nil {
			slog.Error("Failed registering login", "id", identity.ID, "err", err)
		}
	case tokengenerator.TokenExpired:
		if err := r.OnTokenExpired(ctx, event.Token); err != nil {
			slog.Error("Failed removing login", "err", err)
		}
	}
}

// List returns the active sessions ordered by key.
func (r *Registry) List(ctx context.Context) ([]ActiveSession, error) {
	sessions, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(sessions, func(a, b ActiveSession) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return sessions, nil
}
