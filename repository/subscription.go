package repository

import (
	"context"
	"errors"

	"taskmgr-backend/models"

	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	GetByExternalUserID(ctx context.Context, externalUserID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	// Upsert writes the full billing state for one user: update when a row
	// exists, create otherwise. All fields are overwritten so a replayed
	// event lands on the same final state.
	Upsert(ctx context.Context, sub *models.Subscription) error
	UpdateStatus(ctx context.Context, externalUserID string, status models.SubscriptionStatus) error
	DeleteByExternalUserID(ctx context.Context, externalUserID string) error
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{db: db}
}

func (r *subscriptionRepoImpl) GetByExternalUserID(ctx context.Context, externalUserID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		First(&sub, "external_user_id = ?", externalUserID).
		Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) Upsert(ctx context.Context, sub *models.Subscription) error {
	var existing models.Subscription
	err := r.db.WithContext(ctx).
		First(&existing, "external_user_id = ?", sub.ExternalUserID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(sub).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&existing).
		Updates(map[string]interface{}{
			"stripe_customer_id":        sub.StripeCustomerID,
			"stripe_subscription_id":    sub.StripeSubscriptionID,
			"stripe_price_id":           sub.StripePriceID,
			"stripe_current_period_end": sub.StripeCurrentPeriodEnd,
			"status":                    sub.Status,
		}).Error
}

func (r *subscriptionRepoImpl) UpdateStatus(ctx context.Context, externalUserID string, status models.SubscriptionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("external_user_id = ?", externalUserID).
		Update("status", status).
		Error
}

func (r *subscriptionRepoImpl) DeleteByExternalUserID(ctx context.Context, externalUserID string) error {
	return r.db.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Delete(&models.Subscription{}).
		Error
}
