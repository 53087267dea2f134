package repo

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/digibank/digibank-service/internal/logger"
	"github.com/digibank/digibank-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (*Repository, *gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewRepository(db, nil, must(logger.NewLogger("error"))), db, mock
}

func TestLockAccount_Postgres_SelectsForUpdate(t *testing.T) {
	r, db, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "card_number", "balance", "version", "pin"}).
		AddRow(5, 9, "4111111111119876", "12.34", 3, "4321")
	mock.ExpectQuery(`SELECT \* FROM "cards" WHERE id = \$1 .*FOR UPDATE`).WillReturnRows(rows)

	acc, err := r.LockAccount(context.Background(), db, model.AccountKindCard, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 9, acc.OwnerID)
	assert.EqualValues(t, 3, acc.Version)
	assert.Equal(t, "12.34", acc.Balance.String())
	assert.Equal(t, "card ..9876", acc.Label)
	require.NotNil(t, acc.Pin)
	assert.Equal(t, "4321", *acc.Pin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalance_Postgres_VersionConflict(t *testing.T) {
	r, db, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).WillReturnResult(sqlmock.NewResult(0, 0))
	err := r.UpdateBalance(context.Background(), db, model.AccountKindUser, 1, decimal.NewFromInt(5), 2)
	assert.ErrorIs(t, err, ErrVersionConflict)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, r.UpdateBalance(context.Background(), db, model.AccountKindUser, 1, decimal.NewFromInt(5), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollOutbox_Postgres(t *testing.T) {
	r, _, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "aggregate", "aggregate_id", "event_type", "payload", "processed"}).
		AddRow(1, "card", 5, "Transfer", `{"amount":"1"}`, false)
	mock.ExpectQuery(`SELECT \* FROM "event_outbox" WHERE processed = \$1 ORDER BY created_at,id LIMIT \$2`).
		WillReturnRows(rows)

	evts, err := r.PollOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "Transfer", evts[0].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
