package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/config"
	"github.com/wingopay/backend/internal/models"
)

// LedgerService is the single write path for account balances. Every balance
// change in the system funnels through AppendEntry/AppendEntryTx: the balance
// check, the balance update and the ledger entry insert happen inside one
// database transaction under a row lock on the account.
type LedgerService struct {
	db    *sql.DB
	cfg   *config.WalletConfig
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB, cfg *config.WalletConfig) *LedgerService {
	return &LedgerService{
		db:    db,
		cfg:   cfg,
		audit: audit.NewLogger(),
	}
}

// GetAccount returns the wallet state for one user.
func (s *LedgerService) GetAccount(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, balance, total_wagered, wager_requirement, locked, created_at, updated_at
		FROM users
		WHERE id = $1`, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.Balance, &u.TotalWagered,
		&u.WagerRequirement, &u.Locked, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &u, nil
}

// AppendEntry applies one balance change in its own transaction.
func (s *LedgerService) AppendEntry(ctx context.Context, userID string, delta int64, reason, referenceID, note string) (*models.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.AppendEntryTx(tx, userID, delta, reason, referenceID, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.audit.LogEntry(userID, referenceID, reason, delta, entry.ResultingBalance)
	return entry, nil
}

// AppendEntryTx applies one balance change inside the caller's transaction.
// The account row is locked for the remainder of the transaction, so a caller
// composing a larger unit of work (request approval) keeps the balance check
// and its own writes atomic.
func (s *LedgerService) AppendEntryTx(tx *sql.Tx, userID string, delta int64, reason, referenceID, note string) (*models.LedgerEntry, error) {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return nil, err
	}

	if delta < 0 {
		if account.Locked {
			return nil, ErrAccountLocked
		}
		if account.Balance+delta < 0 {
			return nil, ErrInsufficientFunds
		}
	}

	resulting := account.Balance + delta

	if _, err := tx.Exec(`
		UPDATE users SET balance = $1, updated_at = $2 WHERE id = $3`,
		resulting, time.Now(), userID); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	entry := &models.LedgerEntry{
		UserID:           userID,
		Delta:            delta,
		Reason:           reason,
		ReferenceID:      referenceID,
		ResultingBalance: resulting,
		Note:             note,
	}
	err = tx.QueryRow(`
		INSERT INTO ledger_entries (user_id, delta, reason, reference_id, resulting_balance, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		userID, delta, reason, referenceID, resulting, note, time.Now(),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	return entry, nil
}

// lockAccount takes the row lock that serializes all balance work per account.
// Waits are bounded by the configured lock_timeout; contention surfaces as
// ErrBusy rather than an indefinite block.
func (s *LedgerService) lockAccount(tx *sql.Tx, userID string) (*models.User, error) {
	if _, err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("set lock_timeout: %w", err)
	}

	var u models.User
	err := tx.QueryRow(`
		SELECT id, balance, total_wagered, wager_requirement, locked
		FROM users
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&u.ID, &u.Balance, &u.TotalWagered, &u.WagerRequirement, &u.Locked)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, mapLockError(err)
	}
	return &u, nil
}

// EntriesForAccount returns the audit trail for one account, newest first.
func (s *LedgerService) EntriesForAccount(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, delta, reason, reference_id, resulting_balance, note, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.ReferenceID, &e.ResultingBalance, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TransactionHistory handles GET /user/transactions
// @Summary Ledger history for the caller
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries to return" default(50)
// @Success 200 {array} map[string]any
// @Failure 401 {object} ErrorResponse
// @Router /user/transactions [get]
func (s *LedgerService) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := s.EntriesForAccount(r.Context(), userID, limit)
	if err != nil {
		SendErrorResponse(w, "Failed to load transactions", http.StatusInternalServerError, nil)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":                e.ID,
			"amount":            RupeesFromPaise(e.Delta),
			"reason":            e.Reason,
			"reference_id":      e.ReferenceID,
			"resulting_balance": RupeesFromPaise(e.ResultingBalance),
			"note":              e.Note,
			"created_at":        e.CreatedAt,
		})
	}
	SendJSON(w, http.StatusOK, out)
}
