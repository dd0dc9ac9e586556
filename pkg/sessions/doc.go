// Package sessions is the shared login registry.
//
// Keys are the lower-cased Authorization header value ("bearer <token>"),
// so lookups ignore the case of both the scheme and the token. Values are
// the Identity the token was issued for.
//
// The registry follows the token issuer: subscribe HandleTokenEvent and
// every token_generated adds an entry, every token_expired removes it.
//
//	registry := sessions.NewRegistry(sessions.NewInMemoryStore(), []string{"admin"})
//	issuer.AddListener(registry.HandleTokenEvent)
//
// Stores are in-memory, Redis (shared across instances) or PostgreSQL.
// Each store operation touches a single key, so concurrent logins and
// logouts never overwrite each other.
package sessions
