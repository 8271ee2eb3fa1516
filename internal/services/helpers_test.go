package services

import (
	"context"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/wingopay/backend/internal/config"
)

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, "userID", userID)
}

func testWalletConfig() *config.WalletConfig {
	return &config.WalletConfig{
		MinWithdrawal:        100 * 100,
		MaxWithdrawal:        50000 * 100,
		MaxDeposit:           100000 * 100,
		WagerMultiplier:      2.0,
		WagerPolicy:          config.WagerPolicyAdditive,
		LockTimeout:          3 * time.Second,
		StatsCacheTTL:        30 * time.Second,
		SettlementQueue:      "wager_settlements",
		SettlementMaxRetries: 5,
	}
}

// lockedAccountRows builds the row set returned by the FOR UPDATE account lock.
func lockedAccountRows(userID string, balance, wagered, requirement int64, locked bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "balance", "total_wagered", "wager_requirement", "locked"}).
		AddRow(userID, balance, wagered, requirement, locked)
}

// accountRows builds the row set returned by GetAccount.
func accountRows(userID string, balance, wagered, requirement int64, locked bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "role", "balance", "total_wagered", "wager_requirement", "locked", "created_at", "updated_at",
	}).AddRow(userID, userID+"@example.com", "Player", "user", balance, wagered, requirement, locked, now, now)
}

// fundingRequestRows builds the row set returned by the FOR UPDATE request lock.
func fundingRequestRows(id, userID, kind string, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "kind", "amount", "method", "utr", "upi_id", "bank_name", "account_holder",
		"account_number", "ifsc_code", "mobile_number", "status", "rejection_reason",
		"decided_by", "decided_at", "created_at",
	}).AddRow(id, userID, kind, amount, "upi", "UTR123456", "", "", "", "", "", "", status, "", "", nil, time.Now())
}

func entryInsertRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now())
}
