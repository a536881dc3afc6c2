package repository

import (
	"context"
	"testing"
	"time"

	"taskmgr-backend/models"
	"taskmgr-backend/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTicketTransaction_CreateIfAbsent_CreatesNewLine(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "ticket_transactions" WHERE stripe_event_id = \$1 AND line_index = \$2 (.+) LIMIT \$3`).
		WithArgs("evt_1", 0, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "ticket_transactions" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tx-row-1"))
	mock.ExpectCommit()

	repo := NewTicketTransactionRepository(db)
	created, err := repo.CreateIfAbsent(context.Background(), &models.TicketTransaction{
		Email:         "buyer@example.com",
		TicketType:    "standard",
		Quantity:      2,
		PricePerUnit:  12500,
		TotalAmount:   25000,
		Status:        models.TicketTransactionCompleted,
		PurchaseDate:  time.Now(),
		StripeEventID: "evt_1",
		LineIndex:     0,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketTransaction_CreateIfAbsent_SkipsExistingLine(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "ticket_transactions" WHERE stripe_event_id = \$1 AND line_index = \$2 (.+) LIMIT \$3`).
		WithArgs("evt_1", 0, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stripe_event_id", "line_index"}).
			AddRow("tx-row-1", "evt_1", 0))

	repo := NewTicketTransactionRepository(db)
	created, err := repo.CreateIfAbsent(context.Background(), &models.TicketTransaction{
		StripeEventID: "evt_1",
		LineIndex:     0,
	})

	require.NoError(t, err)
	assert.False(t, created, "a redelivered line must not be written twice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketTransaction_ListByEmail(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "ticket_transactions" WHERE email = \$1 ORDER BY purchase_date DESC`).
		WithArgs("buyer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "ticket_type", "quantity"}).
			AddRow("tx-row-1", "buyer@example.com", "standard", 2).
			AddRow("tx-row-2", "buyer@example.com", "vip", 1))

	repo := NewTicketTransactionRepository(db)
	txs, err := repo.ListByEmail(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "standard", txs[0].TicketType)
	assert.Equal(t, "vip", txs[1].TicketType)
}
