package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/domainpolicy"
	"github.com/tendant/loginapp/pkg/tokengenerator"
)

type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) CheckPassword(ctx context.Context, id, proof string) (account.CheckResult, error) {
	args := m.Called(ctx, id, proof)
	return args.Get(0).(account.CheckResult), args.Error(1)
}

type MockOTP struct {
	mock.Mock
}

func (m *MockOTP) Verify(secret, code string) (bool, error) {
	args := m.Called(secret, code)
	return args.Bool(0), args.Error(1)
}

type MockDomains struct {
	mock.Mock
}

func (m *MockDomains) AllowDomain(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Generate(ctx context.Context, subject tokengenerator.Subject) (tokengenerator.Token, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(tokengenerator.Token), args.Error(1)
}

func (m *MockTokenIssuer) Expire(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

var validAttempt = LoginAttempt{ID: "alice@example.com", PasswordProof: "pw", OTP: "123456", IPAddress: "192.0.2.1"}

func approvedCheck() account.CheckResult {
	return account.CheckResult{
		Valid:      true,
		Approved:   true,
		Verified:   true,
		TotpSecret: "SECRET",
		Identity:   account.Identity{ID: "alice@example.com", Org: "acme", Name: "Alice", Role: "admin"},
	}
}

type fixture struct {
	creds   *MockCredentials
	otp     *MockOTP
	domains *MockDomains
	chain   *ListenerChain
}

func newFixture(mode ChainMode) *fixture {
	return &fixture{
		creds:   &MockCredentials{},
		otp:     &MockOTP{},
		domains: &MockDomains{},
		chain:   NewListenerChain(mode, nil),
	}
}

func (f *fixture) service(opts ...Option) *Service {
	opts = append([]Option{WithDomainChecker(f.domains), WithListenerChain(f.chain)}, opts...)
	return NewService(f.creds, f.otp, opts...)
}

func (f *fixture) allowAll() {
	f.domains.On("AllowDomain", mock.Anything, validAttempt.ID).Return(true, nil)
	f.creds.On("CheckPassword", mock.Anything, validAttempt.ID, "pw").Return(approvedCheck(), nil)
	f.otp.On("Verify", "SECRET", "123456").Return(true, nil)
}

func TestLoginMalformedAttempt(t *testing.T) {
	tests := []struct {
		name    string
		attempt LoginAttempt
	}{
		{name: "missing id", attempt: LoginAttempt{PasswordProof: "pw", OTP: "1"}},
		{name: "missing password", attempt: LoginAttempt{ID: "a", OTP: "1"}},
		{name: "missing otp", attempt: LoginAttempt{ID: "a", PasswordProof: "pw"}},
		{name: "empty", attempt: LoginAttempt{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(ChainModeFirst)
			result := f.service().Login(context.Background(), tt.attempt)

			assert.Equal(t, LoginResult{Success: false, Reason: ReasonUnknown}, result)
			f.domains.AssertNotCalled(t, "AllowDomain", mock.Anything, mock.Anything)
			f.creds.AssertNotCalled(t, "CheckPassword", mock.Anything, mock.Anything, mock.Anything)
			f.otp.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
		})
	}
}

func TestLoginDomainRejected(t *testing.T) {
	for name, domainErr := range map[string]error{"rejected": nil, "checker error": errors.New("dns down")} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(ChainModeFirst)
			f.domains.On("AllowDomain", mock.Anything, validAttempt.ID).Return(false, domainErr)

			result := f.service().Login(context.Background(), validAttempt)

			assert.False(t, result.Success)
			assert.Equal(t, ReasonDomainError, result.Reason)
			f.creds.AssertNotCalled(t, "CheckPassword", mock.Anything, mock.Anything, mock.Anything)
			f.otp.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
		})
	}
}

func TestLoginCredentialFailures(t *testing.T) {
	tests := []struct {
		name      string
		check     account.CheckResult
		checkErr  error
		maskBadID bool
		want      Reason
	}{
		{name: "no such id", check: account.CheckResult{Reason: account.ReasonNoID}, want: ReasonBadID},
		{name: "no such id masked", check: account.CheckResult{Reason: account.ReasonNoID}, maskBadID: true, want: ReasonBadPassword},
		{name: "bad password", check: account.CheckResult{Reason: account.ReasonBadPassword}, want: ReasonBadPassword},
		{name: "invalid without reason", check: account.CheckResult{}, want: ReasonUnknown},
		{name: "verifier error", checkErr: errors.New("db down"), want: ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(ChainModeFirst)
			f.domains.On("AllowDomain", mock.Anything, validAttempt.ID).Return(true, nil)
			f.creds.On("CheckPassword", mock.Anything, validAttempt.ID, "pw").Return(tt.check, tt.checkErr)

			result := f.service(WithMaskBadID(tt.maskBadID)).Login(context.Background(), validAttempt)

			assert.False(t, result.Success)
			assert.False(t, result.TokenFlag)
			assert.Equal(t, tt.want, result.Reason)
			assert.Empty(t, result.ID)
			f.otp.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
		})
	}
}

func TestLoginNotApproved(t *testing.T) {
	f := newFixture(ChainModeFirst)
	check := approvedCheck()
	check.Approved = false
	f.domains.On("AllowDomain", mock.Anything, validAttempt.ID).Return(true, nil)
	f.creds.On("CheckPassword", mock.Anything, validAttempt.ID, "pw").Return(check, nil)

	result := f.service().Login(context.Background(), validAttempt)

	assert.False(t, result.Success)
	assert.False(t, result.TokenFlag)
	assert.False(t, result.Approved)
	assert.Equal(t, ReasonBadApproval, result.Reason)
	assert.Equal(t, "alice@example.com", result.ID)
	f.otp.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestLoginBadOTP(t *testing.T) {
	for name, otpErr := range map[string]error{"mismatch": nil, "verifier error": errors.New("bad length")} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(ChainModeFirst)
			f.domains.On("AllowDomain", mock.Anything, validAttempt.ID).Return(true, nil)
			f.creds.On("CheckPassword", mock.Anything, validAttempt.ID, "pw").Return(approvedCheck(), nil)
			f.otp.On("Verify", "SECRET", "123456").Return(false, otpErr)

			result := f.service().Login(context.Background(), validAttempt)

			assert.False(t, result.Success)
			assert.False(t, result.TokenFlag)
			assert.Equal(t, ReasonBadOTP, result.Reason)
		})
	}
}

func TestLoginSuccessWithoutListeners(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()

	result := f.service().Login(context.Background(), validAttempt)

	assert.Equal(t, LoginResult{
		ID:        "alice@example.com",
		Org:       "acme",
		Name:      "Alice",
		Role:      "admin",
		Verified:  true,
		Approved:  true,
		Success:   true,
		TokenFlag: true,
		Reason:    ReasonOK,
	}, result)
	f.domains.AssertExpectations(t)
	f.creds.AssertExpectations(t)
	f.otp.AssertExpectations(t)
}

func TestLoginListenerVeto(t *testing.T) {
	t.Run("default reason", func(t *testing.T) {
		f := newFixture(ChainModeFirst)
		f.allowAll()
		f.chain.Register(ListenerRegistration{"test", "deny"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
			return false
		}))

		result := f.service().Login(context.Background(), validAttempt)

		assert.False(t, result.Success)
		assert.False(t, result.TokenFlag)
		assert.Equal(t, ReasonUnknown, result.Reason)
	})

	t.Run("listener reason kept", func(t *testing.T) {
		f := newFixture(ChainModeFirst)
		f.allowAll()
		f.chain.Register(ListenerRegistration{"test", "deny"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
			r.Reason = ReasonBadApproval
			return false
		}))

		result := f.service().Login(context.Background(), validAttempt)

		assert.False(t, result.Success)
		assert.Equal(t, ReasonBadApproval, result.Reason)
	})

	t.Run("listener sees passing result", func(t *testing.T) {
		f := newFixture(ChainModeFirst)
		f.allowAll()
		var seen LoginResult
		f.chain.Register(ListenerRegistration{"test", "spy"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
			seen = *r
			return true
		}))

		result := f.service().Login(context.Background(), validAttempt)

		assert.True(t, result.Success)
		assert.True(t, seen.TokenFlag)
		assert.Equal(t, ReasonOK, seen.Reason)
	})
}

type recorderFunc func(ctx context.Context, id string, at time.Time, ip string) error

func (f recorderFunc) RecordLogin(ctx context.Context, id string, at time.Time, ip string) error {
	return f(ctx, id, at, ip)
}

func TestLoginSchedulesStats(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	type call struct {
		id string
		at time.Time
		ip string
	}
	calls := make(chan call, 1)
	writer, q := newTestStatsWriter(recorderFunc(func(ctx context.Context, id string, at time.Time, ip string) error {
		calls <- call{id, at, ip}
		return nil
	}))
	defer q.Shutdown(context.Background())

	result := f.service(WithStatsWriter(writer), WithClock(func() time.Time { return now })).Login(context.Background(), validAttempt)
	require.True(t, result.Success)

	select {
	case c := <-calls:
		assert.Equal(t, call{"alice@example.com", now, "192.0.2.1"}, c)
	case <-time.After(time.Second):
		t.Fatal("stats not recorded")
	}
}

func TestLoginNoStatsOnFailure(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()
	f.chain.Register(ListenerRegistration{"test", "deny"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool { return false }))

	recorded := false
	writer, q := newTestStatsWriter(recorderFunc(func(ctx context.Context, id string, at time.Time, ip string) error {
		recorded = true
		return nil
	}))

	f.service(WithStatsWriter(writer)).Login(context.Background(), validAttempt)
	require.NoError(t, q.Shutdown(context.Background()))
	assert.False(t, recorded)
}

func TestLoginWithRealCollaborators(t *testing.T) {
	ctx := context.Background()
	accounts := account.NewService(account.NewInMemoryRepository(), account.WithHasher(&account.BcryptHasher{Cost: 4}))
	_, err := accounts.CreateAccount(ctx, account.CreateParams{ID: "bob@corp.example", Password: "pw", Role: "user", Approved: true, TotpSecret: "SECRET"})
	require.NoError(t, err)

	otp := &MockOTP{}
	otp.On("Verify", "SECRET", "000000").Return(true, nil)

	svc := NewService(accounts, otp, WithDomainChecker(domainpolicy.NewListChecker([]string{"corp.example"}, nil)))

	result := svc.Login(ctx, LoginAttempt{ID: "BOB@corp.example", PasswordProof: "pw", OTP: "000000"})
	assert.True(t, result.Success)
	assert.Equal(t, "bob@corp.example", result.ID)

	result = svc.Login(ctx, LoginAttempt{ID: "bob@elsewhere.example", PasswordProof: "pw", OTP: "000000"})
	assert.Equal(t, ReasonDomainError, result.Reason)
}

var aliceSubject = tokengenerator.Subject{ID: "alice@example.com", Org: "acme", Name: "Alice", Role: "admin"}

func TestLoginIssuesToken(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()

	expires := time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC)
	issuer := &MockTokenIssuer{}
	issuer.On("Generate", mock.Anything, aliceSubject).Return(tokengenerator.Token{Value: "tok", ExpiresAt: expires}, nil)

	var seen *tokengenerator.Token
	f.chain.Register(ListenerRegistration{"test", "spy"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
		seen = r.Token
		return true
	}))

	result := f.service(WithTokenIssuer(issuer)).Login(context.Background(), validAttempt)

	require.True(t, result.Success)
	require.NotNil(t, result.Token)
	assert.Equal(t, "tok", result.Token.Value)
	assert.Equal(t, expires, result.Token.ExpiresAt)
	assert.Same(t, result.Token, seen)
	issuer.AssertExpectations(t)
	issuer.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything)
}

func TestLoginTokenFailureSkipsListenersAndStats(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()

	issuer := &MockTokenIssuer{}
	issuer.On("Generate", mock.Anything, aliceSubject).Return(tokengenerator.Token{}, errors.New("signing key unavailable"))

	invoked := false
	f.chain.Register(ListenerRegistration{"test", "alert"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
		invoked = true
		return true
	}))

	recorded := false
	writer, q := newTestStatsWriter(recorderFunc(func(ctx context.Context, id string, at time.Time, ip string) error {
		recorded = true
		return nil
	}))

	result := f.service(WithTokenIssuer(issuer), WithStatsWriter(writer)).Login(context.Background(), validAttempt)
	require.NoError(t, q.Shutdown(context.Background()))

	assert.False(t, result.Success)
	assert.False(t, result.TokenFlag)
	assert.Equal(t, ReasonUnknown, result.Reason)
	assert.Nil(t, result.Token)
	assert.False(t, invoked)
	assert.False(t, recorded)
	assert.Equal(t, int64(0), q.Stats().Enqueued)
}

func TestLoginVetoExpiresIssuedToken(t *testing.T) {
	f := newFixture(ChainModeFirst)
	f.allowAll()
	f.chain.Register(ListenerRegistration{"test", "deny"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool { return false }))

	issuer := &MockTokenIssuer{}
	issuer.On("Generate", mock.Anything, aliceSubject).Return(tokengenerator.Token{Value: "tok", ExpiresAt: time.Now().Add(time.Minute)}, nil)
	issuer.On("Expire", mock.Anything, "tok").Return(nil)

	result := f.service(WithTokenIssuer(issuer)).Login(context.Background(), validAttempt)

	assert.False(t, result.Success)
	assert.Nil(t, result.Token)
	issuer.AssertExpectations(t)
}
