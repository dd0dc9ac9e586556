package account

import (
	"context"
	"strings"
	"time"
)

// Account is a stored credential record.
type Account struct {
	ID           string    `json:"id"`
	Org          string    `json:"org"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	Approved     bool      `json:"approved"`
	Verified     bool      `json:"verified"`
	TotpSecret   string    `json:"totp_secret"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
	LastLoginIP  string    `json:"last_login_ip,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the subset of an account exposed after a credential check.
type Identity struct {
	ID   string
	Org  string
	Name string
	Role string
}

// FailureReason explains why a credential check did not pass.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonNoID
	ReasonBadPassword
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNoID:
		return "noid"
	case ReasonBadPassword:
		return "badpassword"
	default:
		return "none"
	}
}

// CheckResult is the outcome of Verifier.CheckPassword.
// Approved, Verified, TotpSecret and Identity are only meaningful when Valid.
type CheckResult struct {
	Valid      bool
	Reason     FailureReason
	Approved   bool
	Verified   bool
	TotpSecret string
	Identity   Identity
}

// Verifier checks an identifier and password proof against stored credentials.
type Verifier interface {
	CheckPassword(ctx context.Context, id, proof string) (CheckResult, error)
}

// Repository stores accounts. Missing accounts are reported with an
// errors.ErrCodeAccountNotFound error.
type Repository interface {
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	UpdateLoginStats(ctx context.Context, id string, at time.Time, ip string) error
	SetApproved(ctx context.Context, id string, approved bool) error
}

// NormalizeID lower-cases and trims an identifier. Accounts are keyed by
// the normalized form.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
