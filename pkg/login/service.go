package login

import (
	"context"
	"log/slog"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/domainpolicy"
	"github.com/tendant/loginapp/pkg/tokengenerator"
	"github.com/tendant/loginapp/pkg/twofa"
	"github.com/tendant/loginapp/pkg/utils"
)

// Service verifies login attempts.
type Service struct {
	credentials account.Verifier
	otp         twofa.Verifier
	domains     domainpolicy.Checker
	chain       *ListenerChain
	stats       *StatsWriter
	issuer      TokenIssuer
	maskBadID   bool
	now         func() time.Time
}

type Option func(*Service)

// TokenIssuer issues the access token for a successful login and expires
// it again when a listener vetoes.
type TokenIssuer interface {
	Generate(ctx context.Context, subject tokengenerator.Subject) (tokengenerator.Token, error)
	Expire(ctx context.Context, token string) error
}

func WithDomainChecker(checker domainpolicy.Checker) Option {
	return func(s *Service) {
		s.domains = checker
	}
}

func WithListenerChain(chain *ListenerChain) Option {
	return func(s *Service) {
		s.chain = chain
	}
}

func WithStatsWriter(w *StatsWriter) Option {
	return func(s *Service) {
		s.stats = w
	}
}

// WithTokenIssuer makes Login issue the token before listeners run, so
// listeners and stats only see logins that hold a token.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithMaskBadID reports an unknown id as a bad password so callers cannot
// find out which ids exist.
func WithMaskBadID(mask bool) Option {
	return func(s *Service) {
		s.maskBadID = mask
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(credentials account.Verifier, otp twofa.Verifier, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		otp:         otp,
		domains:     domainpolicy.AllowAll{},
		chain:       NewListenerChain(ChainModeFirst, nil),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Chain() *ListenerChain {
	return s.chain
}

// AddLoginListener registers a catalog listener on the service's chain.
func (s *Service) AddLoginListener(modulePath, functionName string) error {
	return s.chain.AddLoginListener(modulePath, functionName)
}

// RegisterListener registers an explicit listener under reg.
func (s *Service) RegisterListener(reg ListenerRegistration, l Listener) {
	s.chain.Register(reg, l)
}

// Listeners returns the registrations in invocation order.
func (s *Service) Listeners() []ListenerRegistration {
	return s.chain.Registrations()
}

// Login checks an attempt in order: shape, domain, password, approval,
// one-time code, token, listeners. Every failure is reported in the result.
func (s *Service) Login(ctx context.Context, attempt LoginAttempt) LoginResult {
	slog.Debug("Login attempt", "id", utils.MaskEmail(attempt.ID), "ip", attempt.IPAddress)

	if !attempt.valid() {
		slog.Error("Invalid login request", "id_present", attempt.ID != "", "pwph_present", attempt.PasswordProof != "", "otp_present", attempt.OTP != "")
		return failure(ReasonUnknown)
	}

	allowed, err := s.domains.AllowDomain(ctx, attempt.ID)
	if err != nil || !allowed {
		slog.Error("Login domain not allowed", "id", attempt.ID, "err", err)
		return failure(ReasonDomainError)
	}

	check, err := s.credentials.CheckPassword(ctx, attempt.ID, attempt.PasswordProof)
	if err != nil {
		slog.Error("Failed checking password", "id", attempt.ID, "err", err)
		return failure(ReasonUnknown)
	}
	if !check.Valid {
		return s.credentialFailure(attempt.ID, check.Reason)
	}

	result := LoginResult{
		ID:       check.Identity.ID,
		Org:      check.Identity.Org,
		Name:     check.Identity.Name,
		Role:     check.Identity.Role,
		Verified: check.Verified,
		Approved: check.Approved,
	}

	if !check.Approved {
		slog.Info("Login for unapproved account", "id", result.ID)
		result.Reason = ReasonBadApproval
		return result
	}

	ok, err := s.otp.Verify(check.TotpSecret, attempt.OTP)
	if err != nil || !ok {
		slog.Error("Invalid one-time code", "id", result.ID, "err", err)
		result.Reason = ReasonBadOTP
		return result
	}

	result.Success = true
	result.TokenFlag = true
	result.Reason = ReasonOK

	if s.issuer != nil {
		token, err := s.issue(ctx, result)
		if err != nil {
			slog.Error("Failed to create access token", "id", result.ID, "err", err)
			result.Success = false
			result.TokenFlag = false
			result.Reason = ReasonUnknown
			return result
		}
		result.Token = &token
	}

	if !s.chain.Invoke(ctx, &result) {
		s.revoke(ctx, &result)
		result.Success = false
		result.TokenFlag = false
		if result.Reason == ReasonOK || result.Reason == "" {
			result.Reason = ReasonUnknown
		}
		return result
	}

	if s.stats != nil && !s.stats.Record(result.ID, s.now().UTC(), attempt.IPAddress) {
		slog.Warn("Login stats not recorded, queue closed", "id", result.ID)
	}

	slog.Info("User logged in", "id", result.ID, "org", result.Org, "ip", attempt.IPAddress)
	return result
}

func (s *Service) issue(ctx context.Context, result LoginResult) (tokengenerator.Token, error) {
	var subject tokengenerator.Subject
	if err := copier.Copy(&subject, &result); err != nil {
		return tokengenerator.Token{}, err
	}
	return s.issuer.Generate(ctx, subject)
}

// revoke expires a token issued for a login that a listener vetoed.
func (s *Service) revoke(ctx context.Context, result *LoginResult) {
	if result.Token == nil {
		return
	}
	if err := s.issuer.Expire(ctx, result.Token.Value); err != nil {
		slog.Error("Failed expiring vetoed token", "id", result.ID, "err", err)
	}
	result.Token = nil
}

func (s *Service) credentialFailure(id string, reason account.FailureReason) LoginResult {
	switch reason {
	case account.ReasonNoID:
		slog.Error("Login for unknown id", "id", id)
		if s.maskBadID {
			return failure(ReasonBadPassword)
		}
		return failure(ReasonBadID)
	case account.ReasonBadPassword:
		slog.Error("Bad password", "id", id)
		return failure(ReasonBadPassword)
	default:
		slog.Error("Credential check failed", "id", id, "reason", reason.String())
		return failure(ReasonUnknown)
	}
}
