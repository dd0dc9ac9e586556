package account

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/loginapp/pkg/errors"
)

// InMemoryRepository implements Repository with a map.
type InMemoryRepository struct {
	mutex    sync.RWMutex
	accounts map[string]Account
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[string]Account),
	}
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	acct, ok := r.accounts[NormalizeID(id)]
	if !ok {
		return Account{}, errors.AccountNotFound(id)
	}
	return acct, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, acct Account) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	acct.ID = NormalizeID(acct.ID)
	if _, exists := r.accounts[acct.ID]; exists {
		return Account{}, errors.AlreadyExists("account", acct.ID)
	}
	r.accounts[acct.ID] = acct
	return acct, nil
}

func (r *InMemoryRepository) UpdateLoginStats(ctx context.Context, id string, at time.Time, ip string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	acct, ok := r.accounts[NormalizeID(id)]
	if !ok {
		return errors.AccountNotFound(id)
	}
	acct.LastLoginAt = at
	acct.LastLoginIP = ip
	acct.UpdatedAt = time.Now().UTC()
	r.accounts[acct.ID] = acct
	return nil
}

func (r *InMemoryRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	acct, ok := r.accounts[NormalizeID(id)]
	if !ok {
		return errors.AccountNotFound(id)
	}
	acct.Approved = approved
	acct.UpdatedAt = time.Now().UTC()
	r.accounts[acct.ID] = acct
	return nil
}
