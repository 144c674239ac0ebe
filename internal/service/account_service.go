// internal/service/account_service.go
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// VerifyResult is reported with HTTP 200 either way.
type VerifyResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type AccountService struct {
	AccountRepo repository.AccountRepositoryInterface
	Verifier    mailer.Verifier
}

// List returns accounts without passwords.
func (s *AccountService) List() ([]model.Account, error) {
	accounts, err := s.AccountRepo.ListAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.Account, len(accounts))
	for i, a := range accounts {
		out[i] = a.Public()
	}
	return out, nil
}

func (s *AccountService) Create(a model.Account) error {
	a.Username = strings.TrimSpace(a.Username)
	if err := validateStruct(a); err != nil {
		return err
	}
	if err := s.AccountRepo.Create(a); err != nil {
		return err
	}
	logger.Info("account added", zap.String("username", a.Username), zap.String("server", a.Server))
	return nil
}

func (s *AccountService) Delete(username string) error {
	if username == "" {
		return appErrors.NewValidationError("smtp_username", "")
	}
	return s.AccountRepo.Delete(username)
}

// Test verifies credentials that are not stored yet.
func (s *AccountService) Test(ctx context.Context, a model.Account) (*VerifyResult, error) {
	if err := validateStruct(a); err != nil {
		return nil, err
	}
	return s.verify(ctx, a), nil
}

// TestExisting verifies a stored account.
func (s *AccountService) TestExisting(ctx context.Context, username string) (*VerifyResult, error) {
	if username == "" {
		return nil, appErrors.NewValidationError("smtp_username", "")
	}
	account, err := s.AccountRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, *account), nil
}

func (s *AccountService) verify(ctx context.Context, a model.Account) *VerifyResult {
	if err := s.Verifier.Verify(ctx, a); err != nil {
		logger.Warn("⚠️ account verification failed", zap.String("username", a.Username), zap.Error(err))
		return &VerifyResult{OK: false, Error: err.Error()}
	}
	return &VerifyResult{OK: true}
}
