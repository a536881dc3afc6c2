package repository

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	"taskmgr-backend/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func TestProcessedEvent_Exists_True(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_events" WHERE event_id = \$1`).
		WithArgs("evt_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewProcessedEventRepository(db)
	seen, err := repo.Exists(context.Background(), "evt_1")

	require.NoError(t, err)
	assert.True(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedEvent_Exists_False(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_events" WHERE event_id = \$1`).
		WithArgs("evt_unknown").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	repo := NewProcessedEventRepository(db)
	seen, err := repo.Exists(context.Background(), "evt_unknown")

	require.NoError(t, err)
	assert.False(t, seen)
}

func TestProcessedEvent_MarkProcessed(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "processed_events" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ledger123"))
	mock.ExpectCommit()

	repo := NewProcessedEventRepository(db)
	err := repo.MarkProcessed(context.Background(), "evt_1", "checkout.session.completed")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
