// internal/repository/account_repository.go
package repository

import (
	"path/filepath"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
)

const AccountsFile = "accounts.csv"

type AccountRepositoryInterface interface {
	ListAll() ([]model.Account, error)
	GetByUsername(username string) (*model.Account, error)
	Create(a model.Account) error
	Delete(username string) error
}

// AccountRepository is backed by accounts.csv
// (smtp_server,smtp_port,smtp_username,smtp_password).
type AccountRepository struct {
	table csvTable[model.Account]
}

func NewAccountRepository(dataDir string) *AccountRepository {
	return &AccountRepository{table: csvTable[model.Account]{path: filepath.Join(dataDir, AccountsFile)}}
}

func (r *AccountRepository) ListAll() ([]model.Account, error) {
	return r.table.List()
}

// GetByUsername matches the username exactly. Returns AccountNotFoundError when absent.
func (r *AccountRepository) GetByUsername(username string) (*model.Account, error) {
	accounts, err := r.table.List()
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Username == username {
			return &accounts[i], nil
		}
	}
	return nil, appErrors.NewAccountNotFound(username)
}

func (r *AccountRepository) Create(a model.Account) error {
	return r.table.modify(func(rows []model.Account) ([]model.Account, error) {
		for _, existing := range rows {
			if existing.Username == a.Username {
				return nil, appErrors.ErrAccountExists
			}
		}
		return append(rows, a), nil
	})
}

func (r *AccountRepository) Delete(username string) error {
	return r.table.modify(func(rows []model.Account) ([]model.Account, error) {
		for i, existing := range rows {
			if existing.Username == username {
				return append(rows[:i], rows[i+1:]...), nil
			}
		}
		return nil, appErrors.NewAccountNotFound(username)
	})
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
