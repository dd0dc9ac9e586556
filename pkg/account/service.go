package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/loginapp/pkg/errors"
)

// Service verifies credentials against a Repository.
type Service struct {
	repo   Repository
	hasher PasswordHasher
}

type Option func(*Service)

// WithHasher sets the hasher used for new passwords. Verification always
// picks the hasher from the stored hash.
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		hasher: &BcryptHasher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPassword implements Verifier. An unknown id or a wrong password is
// reported in the result, not as an error.
func (s *Service) CheckPassword(ctx context.Context, id, proof string) (CheckResult, error) {
	acct, err := s.repo.FindByID(ctx, NormalizeID(id))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeAccountNotFound) {
			return CheckResult{Reason: ReasonNoID}, nil
		}
		return CheckResult{}, fmt.Errorf("failed to find account: %w", err)
	}

	ok, err := HasherFor(acct.PasswordHash).Verify(proof, acct.PasswordHash)
	if err != nil {
		slog.Error("Failed verifying password hash", "id", acct.ID, "err", err)
		return CheckResult{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return CheckResult{Reason: ReasonBadPassword}, nil
	}

	result := CheckResult{
		Valid:      true,
		Approved:   acct.Approved,
		Verified:   acct.Verified,
		TotpSecret: acct.TotpSecret,
	}
	if err := copier.Copy(&result.Identity, &acct); err != nil {
		return CheckResult{}, fmt.Errorf("failed to map identity: %w", err)
	}
	return result, nil
}

// CreateParams describes a new account. Password is the clear password proof.
type CreateParams struct {
	ID         string
	Org        string
	Name       string
	Role       string
	Password   string
	Approved   bool
	Verified   bool
	TotpSecret string
}

func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (Account, error) {
	id := NormalizeID(params.ID)
	if id == "" {
		return Account{}, errors.InvalidInput("id", "must not be empty")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return Account{}, errors.InvalidInput("password", err.Error())
	}

	var acct Account
	if err := copier.Copy(&acct, &params); err != nil {
		return Account{}, fmt.Errorf("failed to map account: %w", err)
	}
	now := time.Now().UTC()
	acct.ID = id
	acct.PasswordHash = hash
	acct.CreatedAt = now
	acct.UpdatedAt = now

	return s.repo.Create(ctx, acct)
}

// RecordLogin stores the time and address of a successful login.
func (s *Service) RecordLogin(ctx context.Context, id string, at time.Time, ip string) error {
	return s.repo.UpdateLoginStats(ctx, NormalizeID(id), at, ip)
}
