package postgres

import (
	"errors"
	"time"

	"github.com/roadease/workshop-management/internal/auth"
	"gorm.io/gorm"
)

// AccountRepository implements the auth.AccountRepository interface using GORM
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) auth.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&auth.Account{}).Count(&count).Error
	return count, err
}

func (r *AccountRepository) GetByID(id string) (*auth.Account, error) {
	var account auth.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByIdentifier(identifier string) (*auth.Account, error) {
	var account auth.Account
	err := r.db.
		Where("username = ? OR email = ? OR employee_id = ?", identifier, identifier, identifier).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByUsername(username string) (*auth.Account, error) {
	var account auth.Account
	err := r.db.Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Create(account *auth.Account) error {
	return r.db.Create(account).Error
}

func (r *AccountRepository) UpdatePasswordHash(accountID, passwordHash string) error {
	result := r.db.Model(&auth.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) EmployeeIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&auth.Account{}).Pluck("employee_id", &ids).Error
	return ids, err
}

// ResetRequestRepository implements auth.ResetRequestRepository using GORM
type ResetRequestRepository struct {
	db *gorm.DB
}

func NewResetRequestRepository(db *gorm.DB) auth.ResetRequestRepository {
	return &ResetRequestRepository{db: db}
}

func (r *ResetRequestRepository) Create(request *auth.PasswordResetRequest) error {
	return r.db.Create(request).Error
}

func (r *ResetRequestRepository) GetByID(id string) (*auth.PasswordResetRequest, error) {
	var request auth.PasswordResetRequest
	err := r.db.Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrResetRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *ResetRequestRepository) MarkUsed(id string, usedAt time.Time) error {
	result := r.db.Model(&auth.PasswordResetRequest{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": usedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auth.ErrResetRequestNotFound
	}
	return nil
}
