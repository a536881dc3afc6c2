package repository

import (
	"context"

	"taskmgr-backend/models"

	"gorm.io/gorm"
)

type TaskRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

type taskRepoImpl struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepoImpl{db: db}
}

func (r *taskRepoImpl) ListByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&tasks).
		Error
	return tasks, err
}

func (r *taskRepoImpl) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepoImpl) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepoImpl) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepoImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id).Error
}

func (r *taskRepoImpl) DeleteByOwner(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.Task{}).
		Error
}
