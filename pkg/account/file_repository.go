package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tendant/loginapp/pkg/errors"
)

const accountsFile = "accounts.json"

// FileRepository implements Repository on a JSON file in dataDir.
// Every mutation rewrites the file through a temp file and rename.
type FileRepository struct {
	dataDir  string
	accounts map[string]*Account
	mutex    sync.RWMutex
}

// accountData represents the structure of data stored in the JSON file
type accountData struct {
	Accounts []*Account `json:"accounts"`
}

func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir:  dataDir,
		accounts: make(map[string]*Account),
	}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return repo, nil
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	acct, ok := r.accounts[NormalizeID(id)]
	if !ok {
		return Account{}, errors.AccountNotFound(id)
	}
	return *acct, nil
}

func (r *FileRepository) Create(ctx context.Context, acct Account) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	acct.ID = NormalizeID(acct.ID)
	if _, exists := r.accounts[acct.ID]; exists {
		return Account{}, errors.AlreadyExists("account", acct.ID)
	}
	r.accounts[acct.ID] = &acct
	if err := r.save(); err != nil {
		delete(r.accounts, acct.ID)
		return Account{}, err
	}
	return acct, nil
}

func (r *FileRepository) UpdateLoginStats(ctx context.Context, id string, at time.Time, ip string) error {
	return r.update(id, func(acct *Account) {
		acct.LastLoginAt = at
		acct.LastLoginIP = ip
	})
}

func (r *FileRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.update(id, func(acct *Account) {
		acct.Approved = approved
	})
}

func (r *FileRepository) update(id string, fn func(*Account)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := NormalizeID(id)
	current, ok := r.accounts[key]
	if !ok {
		return errors.AccountNotFound(id)
	}
	updated := *current
	fn(&updated)
	updated.UpdatedAt = time.Now().UTC()

	r.accounts[key] = &updated
	if err := r.save(); err != nil {
		r.accounts[key] = current
		return err
	}
	return nil
}

func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, accountsFile)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var stored accountData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	for _, acct := range stored.Accounts {
		acct.ID = NormalizeID(acct.ID)
		r.accounts[acct.ID] = acct
	}
	return nil
}

// save must be called with the write lock held
func (r *FileRepository) save() error {
	stored := accountData{Accounts: make([]*Account, 0, len(r.accounts))}
	for _, acct := range r.accounts {
		stored.Accounts = append(stored.Accounts, acct)
	}

	jsonData, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	filePath := filepath.Join(r.dataDir, accountsFile)
	tempFile := filePath + ".tmp"
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
