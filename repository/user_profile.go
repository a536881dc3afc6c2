package repository

import (
	"context"

	"taskmgr-backend/models"

	"gorm.io/gorm"
)

type UserProfileRepository interface {
	GetByExternalUserID(ctx context.Context, externalUserID string) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	Update(ctx context.Context, profile *models.UserProfile) error
	DeleteByExternalUserID(ctx context.Context, externalUserID string) error
}

type userProfileRepoImpl struct {
	db *gorm.DB
}

func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepoImpl{db: db}
}

func (r *userProfileRepoImpl) GetByExternalUserID(ctx context.Context, externalUserID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).
		First(&profile, "external_user_id = ?", externalUserID).
		Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userProfileRepoImpl) Create(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *userProfileRepoImpl) Update(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *userProfileRepoImpl) DeleteByExternalUserID(ctx context.Context, externalUserID string) error {
	return r.db.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Delete(&models.UserProfile{}).
		Error
}
