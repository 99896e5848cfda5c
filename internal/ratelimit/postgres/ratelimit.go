package postgres

import (
	"errors"

	"github.com/roadease/workshop-management/internal/ratelimit"
	"gorm.io/gorm"
)

// CounterRepository implements the ratelimit.Repository interface using GORM
type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) ratelimit.Repository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) Get(identifier string) (*ratelimit.Counter, error) {
	var counter ratelimit.Counter
	err := r.db.Where("identifier = ?", identifier).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ratelimit.ErrCounterNotFound
		}
		return nil, err
	}
	return &counter, nil
}

func (r *CounterRepository) Save(counter *ratelimit.Counter) error {
	return r.db.Save(counter).Error
}

func (r *CounterRepository) Delete(identifier string) error {
	result := r.db.Where("identifier = ?", identifier).Delete(&ratelimit.Counter{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ratelimit.ErrCounterNotFound
	}
	return nil
}
