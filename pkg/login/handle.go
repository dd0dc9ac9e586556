package login

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/tendant/loginapp/pkg/errors"
	"github.com/tendant/loginapp/pkg/sessions"
	"github.com/tendant/loginapp/pkg/tokengenerator"
	"github.com/tendant/loginapp/pkg/utils"
)

type Handle struct {
	service  *Service
	issuer   *tokengenerator.Issuer
	registry *sessions.Registry
}

func NewHandle(service *Service, issuer *tokengenerator.Issuer, registry *sessions.Registry) *Handle {
	return &Handle{
		service:  service,
		issuer:   issuer,
		registry: registry,
	}
}

// LoginResponse is the LoginResult plus the issued token on success.
type LoginResponse struct {
	LoginResult
	AccessToken string     `json:"access_token,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type MeResponse struct {
	sessions.Identity
	IsAdmin bool `json:"is_admin"`
}

type SessionView struct {
	Key       string            `json:"key"`
	Identity  sessions.Identity `json:"identity"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

type ListenersResponse struct {
	Mode       ChainMode              `json:"mode"`
	Registered []ListenerRegistration `json:"registered"`
	Catalog    []string               `json:"catalog"`
}

type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, ErrorResponse{Code: code, Message: err.Error()})
}

// PostLogin verifies the attempt and returns the token the service issued.
// The response is always 200 with the result.
// (POST /login)
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var attempt LoginAttempt
	if err := render.DecodeJSON(r.Body, &attempt); err != nil {
		slog.Error("Failed decoding login request", "err", err)
		render.JSON(w, r, LoginResponse{LoginResult: failure(ReasonUnknown)})
		return
	}
	attempt.IPAddress = utils.ClientIP(r)

	resp := LoginResponse{LoginResult: h.service.Login(r.Context(), attempt)}
	if resp.Success && resp.Token != nil {
		resp.AccessToken = resp.Token.Value
		resp.ExpiresAt = &resp.Token.ExpiresAt
	}

	render.JSON(w, r, resp)
}

// PostLogout expires the caller's token.
// (POST /logout)
func (h *Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		renderError(w, r, errors.Unauthorized("missing bearer token"))
		return
	}

	if err := h.issuer.Expire(r.Context(), token); err != nil {
		// issued by another instance, drop the shared entry directly
		slog.Debug("Token not live in this issuer", "err", err)
		if err := h.registry.OnTokenExpired(r.Context(), token); err != nil {
			slog.Error("Failed removing login", "err", err)
			renderError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the caller's registry identity.
// (GET /me)
func (h *Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := sessions.IdentityFromContext(r.Context())
	if !ok {
		slog.Error("Failed getting identity from context")
		renderError(w, r, errors.Unauthorized("no session"))
		return
	}
	render.JSON(w, r, MeResponse{
		Identity: identity,
		IsAdmin:  h.registry.IsAdmin(r.Context(), r.Header.Get("Authorization")),
	})
}

// GetSessions lists active sessions with the token part of the key masked.
// (GET /admin/sessions)
func (h *Handle) GetSessions(w http.ResponseWriter, r *http.Request) {
	active, err := h.registry.List(r.Context())
	if err != nil {
		slog.Error("Failed listing sessions", "err", err)
		renderError(w, r, err)
		return
	}

	views := make([]SessionView, 0, len(active))
	for _, s := range active {
		view := SessionView{Key: maskKey(s.Key), Identity: s.Identity}
		if !s.ExpiresAt.IsZero() {
			expiresAt := s.ExpiresAt
			view.ExpiresAt = &expiresAt
		}
		views = append(views, view)
	}
	render.JSON(w, r, views)
}

// GetListeners shows the listener chain.
// (GET /admin/listeners)
func (h *Handle) GetListeners(w http.ResponseWriter, r *http.Request) {
	chain := h.service.Chain()
	render.JSON(w, r, ListenersResponse{
		Mode:       chain.Mode(),
		Registered: chain.Registrations(),
		Catalog:    chain.Catalog().Names(),
	})
}

func maskKey(key string) string {
	const visible = len("bearer ") + 6
	if len(key) <= visible {
		return key
	}
	return key[:visible] + "..."
}

type RouterOption func(*routerOptions)

type routerOptions struct {
	loginMiddleware []func(http.Handler) http.Handler
}

// WithLoginMiddleware wraps POST /login, e.g. with a rate limiter.
func WithLoginMiddleware(mw func(http.Handler) http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.loginMiddleware = append(o.loginMiddleware, mw)
	}
}

// Handler returns a router serving the login routes.
func Handler(h *Handle, tokenAuth *jwtauth.JWTAuth, opts ...RouterOption) http.Handler {
	r := chi.NewRouter()
	Routes(r, h, tokenAuth, opts...)
	return r
}

// Routes registers the login routes on r. Authenticated routes require a
// valid JWT and a live registry session. Admin routes also require an
// admin role.
func Routes(r chi.Router, h *Handle, tokenAuth *jwtauth.JWTAuth, opts ...RouterOption) {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.With(o.loginMiddleware...).Post("/login", h.PostLogin)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(sessions.Middleware(h.registry))

		r.Post("/logout", h.PostLogout)
		r.Get("/me", h.GetMe)

		r.Route("/admin", func(r chi.Router) {
			r.Use(sessions.RequireAdmin(h.registry))
			r.Get("/sessions", h.GetSessions)
			r.Get("/listeners", h.GetListeners)
		})
	})
}
