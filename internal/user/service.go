package user

import (
	"errors"

	"github.com/roadease/workshop-management/internal"
	"github.com/roadease/workshop-management/internal/auth"
)

// Service is the read model behind /users/me. It re-reads the account so the
// client always sees current effective permissions, not the ones captured at
// login.
type Service struct {
	accounts auth.AccountRepository
}

func NewService(accounts auth.AccountRepository) *Service {
	return &Service{accounts: accounts}
}

func (s *Service) GetProfile(accountID string) (*auth.AccountSnapshot, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, internal.ErrAccountNotFound
		}
		return nil, internal.NewInternalError("failed to load account", err)
	}
	snapshot := account.Snapshot()
	return &snapshot, nil
}
