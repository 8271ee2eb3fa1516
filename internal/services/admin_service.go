package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/config"
	"github.com/wingopay/backend/internal/models"
)

// Player actions available to administrators outside the funding lifecycle.
const (
	ActionCredit = "credit"
	ActionDebit  = "debit"
	ActionLock   = "lock"
	ActionUnlock = "unlock"
)

const statsCacheKey = "admin:dashboard_stats"

// AdminService applies direct administrator balance actions and serves the
// read-only dashboard aggregations. Credits and debits go through the same
// ledger primitive as every other balance change.
type AdminService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	funding   *FundingService
	cfg       *config.WalletConfig
	validator *ValidationHelper
	audit     *audit.Logger
}

func NewAdminService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, funding *FundingService, cfg *config.WalletConfig) *AdminService {
	return &AdminService{
		db:        db,
		redis:     redisClient,
		ledger:    ledger,
		funding:   funding,
		cfg:       cfg,
		validator: NewValidationHelper(),
		audit:     audit.NewLogger(),
	}
}

// ApplyPlayerAction performs one administrator action against a player's
// wallet. Credit and debit write ledger entries; lock and unlock flip the
// account flag. The optional reason is persisted for audit.
func (s *AdminService) ApplyPlayerAction(ctx context.Context, adminID, userID, action string, amount int64, reason string) (*models.User, error) {
	switch action {
	case ActionCredit, ActionDebit:
		if amount <= 0 {
			return nil, fmt.Errorf("amount must be positive for %s", action)
		}

		delta, ledgerReason := amount, models.ReasonAdminCredit
		if action == ActionDebit {
			delta, ledgerReason = -amount, models.ReasonAdminDebit
		}
		if _, err := s.ledger.AppendEntry(ctx, userID, delta, ledgerReason, uuid.NewString(), reason); err != nil {
			s.audit.LogError(userID, "", err)
			return nil, err
		}

	case ActionLock, ActionUnlock:
		if err := s.setLocked(ctx, userID, action == ActionLock); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown player action: %s", action)
	}

	s.audit.LogPlayerAction(userID, adminID, action, reason, amount)
	log.Printf("[ADMIN] %s applied %s to user %s", adminID, action, userID)
	return s.ledger.GetAccount(ctx, userID)
}

func (s *AdminService) setLocked(ctx context.Context, userID string, locked bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET locked = $1, updated_at = $2 WHERE id = $3`,
		locked, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("set locked: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DashboardStats holds the read-only aggregations for the admin dashboard.
// Amounts are rupees.
type DashboardStats struct {
	TotalPlayers       int     `json:"total_players"`
	TotalBalance       float64 `json:"total_balance"`
	TodayDeposits      float64 `json:"today_deposits"`
	TodayWithdrawals   float64 `json:"today_withdrawals"`
	PendingDeposits    int     `json:"pending_deposits"`
	PendingWithdrawals int     `json:"pending_withdrawals"`
}

// Stats computes the dashboard aggregations, serving from the Redis cache
// when fresh. Pure read; never mutates wallet state.
func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var stats DashboardStats
			if json.Unmarshal(cached, &stats) == nil {
				return &stats, nil
			}
		}
	}

	var stats DashboardStats
	var totalBalance, todayDeposits, todayWithdrawals int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM users WHERE role = 'user'`).
		Scan(&stats.TotalPlayers, &totalBalance)
	if err != nil {
		return nil, fmt.Errorf("player totals: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'deposit' AND status = 'approved' AND decided_at >= CURRENT_DATE), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'withdrawal' AND status = 'approved' AND decided_at >= CURRENT_DATE), 0),
			COUNT(*) FILTER (WHERE kind = 'deposit' AND status = 'pending'),
			COUNT(*) FILTER (WHERE kind = 'withdrawal' AND status = 'pending')
		FROM funding_requests`).
		Scan(&todayDeposits, &todayWithdrawals, &stats.PendingDeposits, &stats.PendingWithdrawals)
	if err != nil {
		return nil, fmt.Errorf("funding totals: %w", err)
	}

	stats.TotalBalance = RupeesFromPaise(totalBalance)
	stats.TodayDeposits = RupeesFromPaise(todayDeposits)
	stats.TodayWithdrawals = RupeesFromPaise(todayWithdrawals)

	if s.redis != nil {
		if data, err := json.Marshal(&stats); err == nil {
			s.redis.Set(ctx, statsCacheKey, data, s.cfg.StatsCacheTTL)
		}
	}

	return &stats, nil
}

// SearchPlayers finds players by email or display name.
func (s *AdminService) SearchPlayers(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, balance, total_wagered, wager_requirement, locked, created_at, updated_at
		FROM users
		WHERE role = 'user' AND (email ILIKE $1 OR name ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// ListPlayers returns all player accounts with wallet state, newest first.
func (s *AdminService) ListPlayers(ctx context.Context, limit int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, balance, total_wagered, wager_requirement, locked, created_at, updated_at
		FROM users
		WHERE role = 'user'
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	users := []models.User{}
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Balance, &u.TotalWagered,
			&u.WagerRequirement, &u.Locked, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- HTTP handlers ---

type playerActionRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Action string  `json:"action" validate:"required,oneof=credit debit lock unlock"`
	Amount float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason string  `json:"reason" validate:"max=500"`
}

// PlayerManagement handles POST /admin/player-management
// @Summary Apply an administrator action to a player wallet
// @Description credit/debit move money through the ledger; lock/unlock toggle the account flag
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body playerActionRequest true "Action"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Router /admin/player-management [post]
func (s *AdminService) PlayerManagement(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value("userID").(string)
	if !ok || adminID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req playerActionRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := s.ApplyPlayerAction(r.Context(), adminID, req.UserID, req.Action,
		PaiseFromRupees(req.Amount), req.Reason)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"player":  playerJSON(account),
	})
}

// GetDashboardStats handles GET /admin/dashboard-stats
// @Summary Dashboard aggregations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DashboardStats
// @Router /admin/dashboard-stats [get]
func (s *AdminService) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		log.Printf("[ADMIN] Dashboard stats failed: %v", err)
		SendErrorResponse(w, "Failed to compute stats", http.StatusInternalServerError, nil)
		return
	}
	SendJSON(w, http.StatusOK, stats)
}

// ListDeposits handles GET /admin/deposits
// @Summary All deposit requests, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} map[string]any
// @Router /admin/deposits [get]
func (s *AdminService) ListDeposits(w http.ResponseWriter, r *http.Request) {
	s.listRequests(w, r, models.KindDeposit)
}

// ListWithdrawals handles GET /admin/withdrawals
// @Summary All withdrawal requests, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} map[string]any
// @Router /admin/withdrawals [get]
func (s *AdminService) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	s.listRequests(w, r, models.KindWithdrawal)
}

func (s *AdminService) listRequests(w http.ResponseWriter, r *http.Request, kind string) {
	status := r.URL.Query().Get("status")
	if status != "" && status != models.StatusPending && status != models.StatusApproved && status != models.StatusRejected {
		SendErrorResponse(w, "Invalid status filter", http.StatusBadRequest, nil)
		return
	}

	requests, err := s.funding.ListByKind(r.Context(), kind, status, 200)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch requests", http.StatusInternalServerError, nil)
		return
	}

	out := make([]map[string]any, 0, len(requests))
	for i := range requests {
		out = append(out, requestJSON(&requests[i]))
	}
	SendJSON(w, http.StatusOK, out)
}

// SearchPlayer handles GET /admin/search-player?query=
// @Summary Search players by email or name
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param query query string true "Search text"
// @Success 200 {array} map[string]any
// @Router /admin/search-player [get]
func (s *AdminService) SearchPlayer(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		SendErrorResponse(w, "query is required", http.StatusBadRequest, nil)
		return
	}

	players, err := s.SearchPlayers(r.Context(), query, 20)
	if err != nil {
		SendErrorResponse(w, "Search failed", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, playersJSON(players))
}

// ListUsers handles GET /admin/users
// @Summary All player accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} map[string]any
// @Router /admin/users [get]
func (s *AdminService) ListUsers(w http.ResponseWriter, r *http.Request) {
	players, err := s.ListPlayers(r.Context(), 100)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
		return
	}
	SendJSON(w, http.StatusOK, playersJSON(players))
}

func playersJSON(players []models.User) []map[string]any {
	out := make([]map[string]any, 0, len(players))
	for i := range players {
		out = append(out, playerJSON(&players[i]))
	}
	return out
}

// playerJSON converts wallet amounts to rupees for the HTTP surface.
func playerJSON(u *models.User) map[string]any {
	return map[string]any{
		"id":                u.ID,
		"email":             u.Email,
		"name":              u.Name,
		"balance":           RupeesFromPaise(u.Balance),
		"total_wagered":     RupeesFromPaise(u.TotalWagered),
		"wager_requirement": RupeesFromPaise(u.WagerRequirement),
		"locked":            u.Locked,
		"created_at":        u.CreatedAt,
	}
}
