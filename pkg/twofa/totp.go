package twofa

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultIssuer = "loginapp"
	DefaultPeriod = 30
	DefaultSkew   = 1
)

// Verifier checks a one-time code against a shared secret.
type Verifier interface {
	Verify(secret, code string) (bool, error)
}

// TotpVerifier validates 6 digit SHA1 TOTP codes.
type TotpVerifier struct {
	issuer string
	period uint
	skew   uint
	now    func() time.Time
}

type Option func(*TotpVerifier)

func WithIssuer(issuer string) Option {
	return func(v *TotpVerifier) {
		v.issuer = issuer
	}
}

func WithPeriod(period uint) Option {
	return func(v *TotpVerifier) {
		if period > 0 {
			v.period = period
		}
	}
}

func WithSkew(skew uint) Option {
	return func(v *TotpVerifier) {
		v.skew = skew
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *TotpVerifier) {
		v.now = now
	}
}

func NewTotpVerifier(opts ...Option) *TotpVerifier {
	v := &TotpVerifier{
		issuer: DefaultIssuer,
		period: DefaultPeriod,
		skew:   DefaultSkew,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *TotpVerifier) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    v.period,
		Skew:      v.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Verify implements Verifier. An account without a secret never verifies.
func (v *TotpVerifier) Verify(secret, code string) (bool, error) {
	if secret == "" {
		return false, nil
	}
	valid, err := totp.ValidateCustom(code, secret, v.now().UTC(), v.validateOpts())
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false, err
	}
	return valid, nil
}

// Passcode returns the current code for secret.
func (v *TotpVerifier) Passcode(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, v.now().UTC(), v.validateOpts())
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return code, nil
}

// GenerateSecret creates a new secret for accountName and returns it with
// the otpauth:// URL for authenticator apps.
func (v *TotpVerifier) GenerateSecret(accountName string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      v.period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "account", accountName, "issuer", v.issuer, "error", err)
		return "", "", err
	}
	slog.Info("Generated new totp secret", "account", accountName)
	return key.Secret(), key.URL(), nil
}
