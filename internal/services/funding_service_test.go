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

func newFundingFixture(t *testing.T) (*FundingService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := testWalletConfig()
	ledger := NewLedgerService(db, cfg)
	wager := NewWagerService(db, nil, ledger, cfg)
	service := NewFundingService(db, ledger, wager, cfg)
	return service, mock, func() { db.Close() }
}

func TestFundingService_SubmitDeposit(t *testing.T) {
	service, mock, closeDB := newFundingFixture(t)
	defer closeDB()
	ctx := context.Background()

	t.Run("creates pending request", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 0, 0, 0, false))
		mock.ExpectQuery("INSERT INTO funding_requests").
			WithArgs(sqlmock.AnyArg(), "user1", models.KindDeposit, int64(50000), models.MethodUPI,
				"UTR123456", "", "", "", "", "", "", models.StatusPending, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		req, err := service.Submit(ctx, "user1", models.KindDeposit, 50000, models.MethodUPI,
			models.MethodDetails{UTR: "UTR123456"})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, req.Status)
		assert.NotEmpty(t, req.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires a payment reference", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 0, 0, 0, false))

		_, err := service.Submit(ctx, "user1", models.KindDeposit, 50000, models.MethodUPI,
			models.MethodDetails{})
		assert.ErrorIs(t, err, ErrInvalidMethodDetails)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deposit above cap rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 0, 0, 0, false))

		_, err := service.Submit(ctx, "user1", models.KindDeposit, 100000*100+1, models.MethodUPI,
			models.MethodDetails{UTR: "UTR123456"})
		assert.ErrorIs(t, err, ErrAmountOutOfRange)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFundingService_SubmitWithdrawal(t *testing.T) {
	service, mock, closeDB := newFundingFixture(t)
	defer closeDB()
	ctx := context.Background()

	upi := models.MethodDetails{UPIID: "player@upi", AccountHolder: "Player", MobileNumber: "9876543210"}

	t.Run("passes with wager requirement met", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000, 200000, 200000, false))
		mock.ExpectQuery("INSERT INTO funding_requests").
			WithArgs(sqlmock.AnyArg(), "user1", models.KindWithdrawal, int64(50000), models.MethodUPI,
				"", "player@upi", "", "Player", "", "", "9876543210", models.StatusPending, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		req, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000, models.MethodUPI, upi)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked by wager gate", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000, 50000, 200000, false))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000, models.MethodUPI, upi)
		assert.ErrorIs(t, err, ErrWagerRequirementNotMet)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked below minimum", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000, 0, 0, false))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 5000, models.MethodUPI, upi)
		assert.ErrorIs(t, err, ErrAmountOutOfRange)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked above maximum", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000000, 0, 0, false))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000*100+1, models.MethodUPI, upi)
		assert.ErrorIs(t, err, ErrAmountOutOfRange)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked by insufficient balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 20000, 0, 0, false))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000, models.MethodUPI, upi)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked on locked account", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000, 200000, 200000, true))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000, models.MethodUPI, upi)
		assert.ErrorIs(t, err, ErrAccountLocked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bank method requires full destination", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, role, balance").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100000, 200000, 200000, false))

		_, err := service.Submit(ctx, "user1", models.KindWithdrawal, 50000, models.MethodBank,
			models.MethodDetails{BankName: "SBI", AccountHolder: "Player"})
		assert.ErrorIs(t, err, ErrInvalidMethodDetails)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFundingService_Approve(t *testing.T) {
	service, mock, closeDB := newFundingFixture(t)
	defer closeDB()
	ctx := context.Background()

	t.Run("deposit approval credits and raises requirement", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req1").
			WillReturnRows(fundingRequestRows("req1", "user1", models.KindDeposit, 50000, models.StatusPending))
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 10000, 0, 0, false))
		mock.ExpectExec("UPDATE users SET balance").
			WithArgs(int64(60000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(50000), models.ReasonDepositApproved, "req1", int64(60000), "", sqlmock.AnyArg()).
			WillReturnRows(entryInsertRows())
		mock.ExpectExec(`UPDATE users SET wager_requirement = wager_requirement \+`).
			WithArgs(int64(100000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE funding_requests").
			WithArgs(models.StatusApproved, "admin1", sqlmock.AnyArg(), "req1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := service.Approve(ctx, "req1", "admin1", models.KindDeposit)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusApproved, req.Status)
		assert.Equal(t, "admin1", req.DecidedBy)
		assert.NotNil(t, req.DecidedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second decision fails without moving money", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req1").
			WillReturnRows(fundingRequestRows("req1", "user1", models.KindDeposit, 50000, models.StatusApproved))
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "req1", "admin1", models.KindDeposit)
		assert.ErrorIs(t, err, ErrAlreadyDecided)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal approval debits after gate recheck", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req2").
			WillReturnRows(fundingRequestRows("req2", "user1", models.KindWithdrawal, 50000, models.StatusPending))
		// gate recheck lock
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 100000, 200000, 200000, false))
		// ledger write reacquires the same lock
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 100000, 200000, 200000, false))
		mock.ExpectExec("UPDATE users SET balance").
			WithArgs(int64(50000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(-50000), models.ReasonWithdrawalApproved, "req2", int64(50000), "", sqlmock.AnyArg()).
			WillReturnRows(entryInsertRows())
		mock.ExpectExec("UPDATE funding_requests").
			WithArgs(models.StatusApproved, "admin1", sqlmock.AnyArg(), "req2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := service.Approve(ctx, "req2", "admin1", models.KindWithdrawal)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusApproved, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal approval blocked when requirement rose since submission", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req3").
			WillReturnRows(fundingRequestRows("req3", "user1", models.KindWithdrawal, 50000, models.StatusPending))
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 100000, 200000, 400000, false))
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "req3", "admin1", models.KindWithdrawal)
		assert.ErrorIs(t, err, ErrWagerRequirementNotMet)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal approval blocked when balance dropped since submission", func(t *testing.T) {
		// ₹500 pending, but only ₹400 left when the decision locks the
		// account. No status flip and no ledger entry may happen.
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req5").
			WillReturnRows(fundingRequestRows("req5", "user1", models.KindWithdrawal, 50000, models.StatusPending))
		// gate recheck lock
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 40000, 200000, 200000, false))
		// ledger write reacquires the same lock and sees the shortfall
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, balance, total_wagered, wager_requirement, locked").
			WithArgs("user1").
			WillReturnRows(lockedAccountRows("user1", 40000, 200000, 200000, false))
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "req5", "admin1", models.KindWithdrawal)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("contended request surfaces as busy", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req6").
			WillReturnError(&pq.Error{Code: "55P03"})
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "req6", "admin1", models.KindWithdrawal)
		assert.ErrorIs(t, err, ErrBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("kind mismatch reads as not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req4").
			WillReturnRows(fundingRequestRows("req4", "user1", models.KindDeposit, 50000, models.StatusPending))
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "req4", "admin1", models.KindWithdrawal)
		assert.ErrorIs(t, err, ErrRequestNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown request", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "ghost", "admin1", models.KindDeposit)
		assert.ErrorIs(t, err, ErrRequestNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFundingService_Reject(t *testing.T) {
	service, mock, closeDB := newFundingFixture(t)
	defer closeDB()
	ctx := context.Background()

	t.Run("requires a reason", func(t *testing.T) {
		_, err := service.Reject(ctx, "req1", "admin1", models.KindDeposit, "   ")
		assert.ErrorIs(t, err, ErrMissingReason)
	})

	t.Run("closes the request without balance change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req1").
			WillReturnRows(fundingRequestRows("req1", "user1", models.KindDeposit, 50000, models.StatusPending))
		mock.ExpectExec("UPDATE funding_requests").
			WithArgs(models.StatusRejected, "invalid utr", "admin1", sqlmock.AnyArg(), "req1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := service.Reject(ctx, "req1", "admin1", models.KindDeposit, "invalid utr")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusRejected, req.Status)
		assert.Equal(t, "invalid utr", req.RejectionReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, user_id, kind, amount, method, utr").
			WithArgs("req1").
			WillReturnRows(fundingRequestRows("req1", "user1", models.KindDeposit, 50000, models.StatusRejected))
		mock.ExpectRollback()

		_, err := service.Reject(ctx, "req1", "admin1", models.KindDeposit, "dup")
		assert.ErrorIs(t, err, ErrAlreadyDecided)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestValidateMethodDetails(t *testing.T) {
	t.Run("unknown method", func(t *testing.T) {
		err := validateMethodDetails(models.KindDeposit, "crypto", models.MethodDetails{UTR: "UTR123"})
		assert.ErrorIs(t, err, ErrInvalidMethodDetails)
	})

	t.Run("upi withdrawal needs destination fields", func(t *testing.T) {
		err := validateMethodDetails(models.KindWithdrawal, models.MethodUPI,
			models.MethodDetails{UPIID: "p@upi"})
		assert.ErrorIs(t, err, ErrInvalidMethodDetails)

		err = validateMethodDetails(models.KindWithdrawal, models.MethodUPI,
			models.MethodDetails{UPIID: "p@upi", AccountHolder: "P", MobileNumber: "9876543210"})
		assert.NoError(t, err)
	})

	t.Run("bank withdrawal needs all fields", func(t *testing.T) {
		err := validateMethodDetails(models.KindWithdrawal, models.MethodBank,
			models.MethodDetails{
				BankName: "SBI", AccountHolder: "P", AccountNumber: "123456",
				IFSCCode: "SBIN0001", MobileNumber: "9876543210",
			})
		assert.NoError(t, err)
	})
}
