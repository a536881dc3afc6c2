package repository

import (
	"context"
	"errors"

	"taskmgr-backend/models"

	"gorm.io/gorm"
)

type TicketTransactionRepository interface {
	// CreateIfAbsent creates the transaction unless a row already exists for
	// the same external event id and line index. Returns true when a row was
	// created.
	CreateIfAbsent(ctx context.Context, tx *models.TicketTransaction) (bool, error)
	ListByExternalUserID(ctx context.Context, externalUserID string) ([]models.TicketTransaction, error)
	ListByEmail(ctx context.Context, email string) ([]models.TicketTransaction, error)
}

type ticketTransactionRepoImpl struct {
	db *gorm.DB
}

func NewTicketTransactionRepository(db *gorm.DB) TicketTransactionRepository {
	return &ticketTransactionRepoImpl{db: db}
}

func (r *ticketTransactionRepoImpl) CreateIfAbsent(ctx context.Context, tx *models.TicketTransaction) (bool, error) {
	var existing models.TicketTransaction
	err := r.db.WithContext(ctx).
		First(&existing, "stripe_event_id = ? AND line_index = ?", tx.StripeEventID, tx.LineIndex).
		Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *ticketTransactionRepoImpl) ListByExternalUserID(ctx context.Context, externalUserID string) ([]models.TicketTransaction, error) {
	var txs []models.TicketTransaction
	err := r.db.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Order("purchase_date DESC").
		Find(&txs).
		Error
	return txs, err
}

func (r *ticketTransactionRepoImpl) ListByEmail(ctx context.Context, email string) ([]models.TicketTransaction, error) {
	var txs []models.TicketTransaction
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("purchase_date DESC").
		Find(&txs).
		Error
	return txs, err
}
