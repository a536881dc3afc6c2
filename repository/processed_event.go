package repository

import (
	"context"
	"time"

	"taskmgr-backend/models"

	"gorm.io/gorm"
)

type ProcessedEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type processedEventRepoImpl struct {
	db *gorm.DB
}

func NewProcessedEventRepository(db *gorm.DB) ProcessedEventRepository {
	return &processedEventRepoImpl{db: db}
}

func (r *processedEventRepoImpl) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).
		Error
	return count > 0, err
}

func (r *processedEventRepoImpl) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	return r.db.WithContext(ctx).Create(&models.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}).Error
}
