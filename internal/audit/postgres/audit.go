package postgres

import (
	"github.com/roadease/workshop-management/internal/audit"
	"gorm.io/gorm"
)

// EventRepository implements the audit.Repository interface using GORM
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) audit.Repository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(event *audit.Event) error {
	return r.db.Create(event).Error
}

func (r *EventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&audit.Event{}).Count(&count).Error
	return count, err
}

// DeleteOldest removes the n lowest sequence numbers: FIFO by insertion
// order, not by timestamp.
func (r *EventRepository) DeleteOldest(n int64) error {
	if n <= 0 {
		return nil
	}
	sub := r.db.Model(&audit.Event{}).
		Select("sequence").
		Order("sequence ASC").
		Limit(int(n))
	return r.db.Where("sequence IN (?)", sub).Delete(&audit.Event{}).Error
}

func (r *EventRepository) List() ([]audit.Event, error) {
	var eventList []audit.Event
	err := r.db.Order("sequence ASC").Find(&eventList).Error
	return eventList, err
}
