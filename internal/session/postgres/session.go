package postgres

import (
	"errors"

	"github.com/roadease/workshop-management/internal/session"
	"gorm.io/gorm"
)

// SessionRepository implements the session.Repository interface using GORM
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) session.Repository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(token string) (*session.Session, error) {
	var s session.Session
	err := r.db.Where("token = ?", token).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Save(s *session.Session) error {
	return r.db.Save(s).Error
}

func (r *SessionRepository) DeleteByToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&session.Session{}).Error
}

func (r *SessionRepository) DeleteByAccount(accountID string) error {
	return r.db.Where("account_id = ?", accountID).Delete(&session.Session{}).Error
}
