package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/wingopay/backend/internal/models"
)

func TestLedgerService_AppendEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, testWalletConfig())
	ctx := context.Background()

	t.Run("credit succeeds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 5000, 0, 0, false))
		mock.ExpectExec("UPDATE users SET balance").
			WithArgs(int64(15000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(10000), models.ReasonAdminCredit, "ref1", int64(15000), "", sqlmock.AnyArg()).
			WillReturnRows(entryInsertRows())
		mock.ExpectCommit()

		entry, err := service.AppendEntry(ctx, "user1", 10000, models.ReasonAdminCredit, "ref1", "")
		assert.NoError(t, err)
		assert.Equal(t, int64(15000), entry.ResultingBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit exceeding balance fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 5000, 0, 0, false))
		mock.ExpectRollback()

		_, err := service.AppendEntry(ctx, "user1", -10000, models.ReasonAdminDebit, "ref2", "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit on locked account fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 50000, 0, 0, true))
		mock.ExpectRollback()

		_, err := service.AppendEntry(ctx, "user1", -10000, models.ReasonAdminDebit, "ref3", "")
		assert.ErrorIs(t, err, ErrAccountLocked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit on locked account still succeeds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 5000, 0, 0, true))
		mock.ExpectExec("UPDATE users SET balance").
			WithArgs(int64(6000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(1000), models.ReasonAdminCredit, "ref4", int64(6000), "", sqlmock.AnyArg()).
			WillReturnRows(entryInsertRows())
		mock.ExpectCommit()

		entry, err := service.AppendEntry(ctx, "user1", 1000, models.ReasonAdminCredit, "ref4", "")
		assert.NoError(t, err)
		assert.Equal(t, int64(6000), entry.ResultingBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.AppendEntry(ctx, "ghost", 1000, models.ReasonAdminCredit, "ref5", "")
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout surfaces as busy", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnError(&pq.Error{Code: "55P03"})
		mock.ExpectRollback()

		_, err := service.AppendEntry(ctx, "user1", 1000, models.ReasonAdminCredit, "ref6", "")
		assert.ErrorIs(t, err, ErrBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GetAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, testWalletConfig())
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 25000, 10000, 50000, false))

		account, err := service.GetAccount(ctx, "user1")
		assert.NoError(t, err)
		assert.Equal(t, int64(25000), account.Balance)
		assert.Equal(t, int64(10000), account.TotalWagered)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetAccount(ctx, "ghost")
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_EntriesForAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, testWalletConfig())

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "delta", "reason", "reference_id", "resulting_balance", "note", "created_at",
	}).
		AddRow(2, "user1", -5000, models.ReasonWithdrawalApproved, "req2", 10000, "", time.Now()).
		AddRow(1, "user1", 15000, models.ReasonDepositApproved, "req1", 15000, "", time.Now())

	mock.ExpectQuery("SELECT id, user_id, delta, reason, reference_id").
		WithArgs("user1", 50).
		WillReturnRows(rows)

	entries, err := service.EntriesForAccount(context.Background(), "user1", 50)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(-5000), entries[0].Delta)
	assert.NoError(t, mock.ExpectationsWereMet())
}
