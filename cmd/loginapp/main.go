package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/config"
	"github.com/tendant/loginapp/pkg/domainpolicy"
	"github.com/tendant/loginapp/pkg/login"
	"github.com/tendant/loginapp/pkg/notification"
	"github.com/tendant/loginapp/pkg/openapi"
	"github.com/tendant/loginapp/pkg/queue"
	"github.com/tendant/loginapp/pkg/ratelimit"
	"github.com/tendant/loginapp/pkg/remotelog"
	"github.com/tendant/loginapp/pkg/sessions"
	"github.com/tendant/loginapp/pkg/tokengenerator"
	"github.com/tendant/loginapp/pkg/twofa"
	"github.com/tendant/loginapp/pkg/utils"
	"golang.org/x/exp/slices"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(-1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
		Level:     remotelog.ParseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accountRepo, closeAccounts, err := newAccountRepository(ctx, cfg)
	if err != nil {
		slog.Error("Failed creating account store", "store", cfg.AccountStore, "err", err)
		os.Exit(-1)
	}
	defer closeAccounts()
	accountService := account.NewService(accountRepo)

	sessionStore, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed creating session store", "store", cfg.SessionStore, "err", err)
		os.Exit(-1)
	}
	defer closeSessions()
	registry := sessions.NewRegistry(sessionStore, cfg.Login.AdminRoleNames())

	// deferred work: login stats and alert emails
	tasks := queue.New(queue.Options{
		Capacity: cfg.Login.StatsQueue,
		Delay:    cfg.Login.UpdateDelayDuration(),
		Timeout:  cfg.Login.StatsTimeoutDuration(),
	})

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			TLS:      cfg.Email.TLS,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}),
		notification.WithLoginAlertTemplate(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	catalog := login.NewCatalog()
	catalog.Add("notification", "loginAlert", notification.NewLoginAlertListener(notificationManager, tasks))
	chain := login.NewListenerChain(login.ChainMode(cfg.Login.ListenerMode), catalog)

	for _, name := range listenerNames(cfg) {
		modulePath, functionName, ok := splitListenerName(name)
		if !ok {
			slog.Error("Invalid login listener name, expected module.function", "listener", name)
			os.Exit(-1)
		}
		if err := chain.AddLoginListener(modulePath, functionName); err != nil {
			slog.Error("Failed registering login listener", "listener", name, "available", catalog.Names(), "err", err)
			os.Exit(-1)
		}
	}

	issuer := tokengenerator.NewIssuer(
		tokengenerator.NewJwtTokenGenerator(cfg.Jwt.Secret, cfg.Jwt.Issuer, cfg.Jwt.Audience),
		tokengenerator.WithExpiry(cfg.Jwt.AccessTokenTTL()),
	)
	issuer.AddListener(registry.HandleTokenEvent)
	go issuer.Run(ctx, cfg.Jwt.SweepEvery())

	loginService := login.NewService(
		accountService,
		twofa.NewTotpVerifier(
			twofa.WithIssuer(cfg.Totp.Issuer),
			twofa.WithPeriod(cfg.Totp.Period),
			twofa.WithSkew(cfg.Totp.Skew),
		),
		login.WithDomainChecker(domainpolicy.NewListChecker(cfg.Domain.Allow, cfg.Domain.Deny)),
		login.WithListenerChain(chain),
		login.WithTokenIssuer(issuer),
		login.WithStatsWriter(login.NewStatsWriter(tasks, accountService)),
		login.WithMaskBadID(cfg.Login.MaskBadID),
	)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.Jwt.Secret), nil)

	// proxy headers are filtered before chi-demo installs RealIP
	router := chi.NewRouter()
	router.Use(utils.TrustProxies(cfg.TrustedProxyPrefixes()))
	server := app.NewApp(
		app.WithRouter(router),
		app.WithAppConfig(cfg.App),
		app.WithMetrics(true),
		app.WithCors(app.DefaultCorsOptions()),
		app.WithHttpin(true),
		app.WithReqLogger(app.DefaultHttpLogger()),
	)

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	var routerOpts []login.RouterOption
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewMiddleware(ratelimit.PerMinute(
			cfg.RateLimit.Capacity,
			cfg.RateLimit.RefillPerMinute,
			cfg.RateLimit.BucketTTLDuration(),
		))
		defer limiter.Stop()
		routerOpts = append(routerOpts, login.WithLoginMiddleware(limiter.Handler))
		slog.Info("Login rate limiting configured", "capacity", cfg.RateLimit.Capacity, "per_minute", cfg.RateLimit.RefillPerMinute)
	}

	loginHandle := login.NewHandle(loginService, issuer, registry)
	login.Routes(server.R, loginHandle, tokenAuth, routerOpts...)

	remotelog.Routes(server.R, remotelog.NewHandle(cfg.RemoteLog, logger))

	doc, err := openapi.Load(ctx)
	if err != nil {
		slog.Error("Failed loading openapi document", "err", err)
		os.Exit(-1)
	}
	openapiHandler, err := openapi.Handler(doc)
	if err != nil {
		slog.Error("Failed creating openapi handler", "err", err)
		os.Exit(-1)
	}
	server.R.Get("/openapi.json", openapiHandler)

	slog.Info("Login service ready",
		"account_store", cfg.AccountStore,
		"session_store", cfg.SessionStore,
		"listener_mode", chain.Mode(),
		"listeners", len(chain.Registrations()),
	)

	server.Run()

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed draining deferred tasks", "err", err)
	}
}

const loginAlertListener = "notification.loginAlert"

// listenerNames returns LOGIN_LISTENERS plus the alert listener when alert
// emails are enabled. Each name appears once, in first-seen order.
func listenerNames(cfg config.Config) []string {
	names := make([]string, 0, len(cfg.Login.Listeners)+1)
	for _, name := range cfg.Login.Listeners {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if cfg.Email.AlertEnabled && !slices.Contains(names, loginAlertListener) {
		names = append(names, loginAlertListener)
	}
	return names
}

// splitListenerName splits "module.function" at the last dot.
func splitListenerName(name string) (modulePath, functionName string, ok bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
