package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/config"
	"github.com/wingopay/backend/internal/models"
)

// FundingService governs deposit and withdrawal requests from creation to
// their single terminal decision. Approval is all-or-nothing with the ledger
// write: if the ledger rejects the movement the request stays pending.
type FundingService struct {
	db        *sql.DB
	ledger    *LedgerService
	wager     *WagerService
	cfg       *config.WalletConfig
	validator *ValidationHelper
	audit     *audit.Logger
}

func NewFundingService(db *sql.DB, ledger *LedgerService, wager *WagerService, cfg *config.WalletConfig) *FundingService {
	return &FundingService{
		db:        db,
		ledger:    ledger,
		wager:     wager,
		cfg:       cfg,
		validator: NewValidationHelper(),
		audit:     audit.NewLogger(),
	}
}

// Submit validates and creates a pending funding request. Withdrawals are
// checked against the current balance and the wager gate here; both are
// re-checked at approval time because either may change in between.
func (s *FundingService) Submit(ctx context.Context, userID, kind string, amount int64, method string, details models.MethodDetails) (*models.FundingRequest, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := validateMethodDetails(kind, method, details); err != nil {
		return nil, err
	}

	switch kind {
	case models.KindDeposit:
		if amount <= 0 || amount > s.cfg.MaxDeposit {
			return nil, fmt.Errorf("%w: deposit must be between 1 and %d paise", ErrAmountOutOfRange, s.cfg.MaxDeposit)
		}
	case models.KindWithdrawal:
		if account.Locked {
			return nil, ErrAccountLocked
		}
		if amount < s.cfg.MinWithdrawal || amount > s.cfg.MaxWithdrawal {
			return nil, fmt.Errorf("%w: withdrawal must be between %d and %d paise", ErrAmountOutOfRange, s.cfg.MinWithdrawal, s.cfg.MaxWithdrawal)
		}
		if amount > account.Balance {
			return nil, ErrInsufficientFunds
		}
		if account.TotalWagered < account.WagerRequirement {
			return nil, ErrWagerRequirementNotMet
		}
	default:
		return nil, fmt.Errorf("invalid request kind: %s", kind)
	}

	req := &models.FundingRequest{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Amount:  amount,
		Method:  method,
		Details: details,
		Status:  models.StatusPending,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO funding_requests
		(id, user_id, kind, amount, method, utr, upi_id, bank_name, account_holder, account_number, ifsc_code, mobile_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`,
		req.ID, req.UserID, req.Kind, req.Amount, req.Method,
		details.UTR, details.UPIID, details.BankName, details.AccountHolder,
		details.AccountNumber, details.IFSCCode, details.MobileNumber,
		req.Status, time.Now(),
	).Scan(&req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert funding request: %w", err)
	}

	log.Printf("[FUNDING] %s request %s created for user %s, amount %d", kind, req.ID, userID, amount)
	return req, nil
}

// Approve moves a pending request to approved and applies the balance change,
// both inside one transaction. A second approval of the same request fails
// with ErrAlreadyDecided and moves no money.
func (s *FundingService) Approve(ctx context.Context, requestID, adminID, expectKind string) (*models.FundingRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.setLockTimeout(tx); err != nil {
		return nil, err
	}

	req, err := s.lockRequest(tx, requestID, expectKind)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, ErrAlreadyDecided
	}

	var delta int64
	var reason string
	switch req.Kind {
	case models.KindDeposit:
		delta, reason = req.Amount, models.ReasonDepositApproved
	case models.KindWithdrawal:
		delta, reason = -req.Amount, models.ReasonWithdrawalApproved

		// The gate is re-checked under the account lock; wagering may have
		// been reset upwards by another deposit since submission.
		account, err := s.ledger.lockAccount(tx, req.UserID)
		if err != nil {
			return nil, err
		}
		if account.TotalWagered < account.WagerRequirement {
			return nil, ErrWagerRequirementNotMet
		}
	}

	entry, err := s.ledger.AppendEntryTx(tx, req.UserID, delta, reason, req.ID, "")
	if err != nil {
		s.audit.LogError(req.UserID, req.ID, err)
		return nil, err
	}

	if req.Kind == models.KindDeposit {
		if err := s.wager.RaiseRequirementTx(tx, req.UserID, req.Amount); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE funding_requests
		SET status = $1, decided_by = $2, decided_at = $3
		WHERE id = $4`,
		models.StatusApproved, adminID, now, requestID); err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	req.Status = models.StatusApproved
	req.DecidedBy = adminID
	req.DecidedAt = &now

	s.audit.LogDecision(req.UserID, req.ID, req.Kind, "APPROVED", adminID, "", req.Amount)
	s.audit.LogEntry(req.UserID, req.ID, reason, delta, entry.ResultingBalance)
	log.Printf("[FUNDING] %s %s approved by %s", req.Kind, req.ID, adminID)
	return req, nil
}

// Reject closes a pending request with a reason. No balance change occurs.
func (s *FundingService) Reject(ctx context.Context, requestID, adminID, expectKind, reason string) (*models.FundingRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.setLockTimeout(tx); err != nil {
		return nil, err
	}

	req, err := s.lockRequest(tx, requestID, expectKind)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, ErrAlreadyDecided
	}

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE funding_requests
		SET status = $1, rejection_reason = $2, decided_by = $3, decided_at = $4
		WHERE id = $5`,
		models.StatusRejected, reason, adminID, now, requestID); err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	req.Status = models.StatusRejected
	req.RejectionReason = reason
	req.DecidedBy = adminID
	req.DecidedAt = &now

	s.audit.LogDecision(req.UserID, req.ID, req.Kind, "REJECTED", adminID, reason, req.Amount)
	log.Printf("[FUNDING] %s %s rejected by %s: %s", req.Kind, req.ID, adminID, reason)
	return req, nil
}

// setLockTimeout bounds every row-lock wait in the transaction. A concurrent
// decision on the same request blocks at most this long before ErrBusy.
func (s *FundingService) setLockTimeout(tx *sql.Tx) error {
	if _, err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	return nil
}

// lockRequest loads a request under FOR UPDATE so the status check and the
// status flip are atomic against a concurrent decision. The caller has already
// bounded the wait via setLockTimeout.
func (s *FundingService) lockRequest(tx *sql.Tx, requestID, expectKind string) (*models.FundingRequest, error) {
	req := &models.FundingRequest{}
	var decidedAt sql.NullTime
	err := tx.QueryRow(`
		SELECT id, user_id, kind, amount, method, utr, upi_id, bank_name, account_holder,
		       account_number, ifsc_code, mobile_number, status, rejection_reason,
		       decided_by, decided_at, created_at
		FROM funding_requests
		WHERE id = $1
		FOR UPDATE`, requestID).Scan(
		&req.ID, &req.UserID, &req.Kind, &req.Amount, &req.Method,
		&req.Details.UTR, &req.Details.UPIID, &req.Details.BankName,
		&req.Details.AccountHolder, &req.Details.AccountNumber,
		&req.Details.IFSCCode, &req.Details.MobileNumber,
		&req.Status, &req.RejectionReason, &req.DecidedBy, &decidedAt, &req.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, mapLockError(err)
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	if expectKind != "" && req.Kind != expectKind {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListByKind returns all requests of one kind, optionally filtered by status,
// newest first. Pure read for the admin screens.
func (s *FundingService) ListByKind(ctx context.Context, kind, status string, limit int) ([]models.FundingRequest, error) {
	query := `
		SELECT id, user_id, kind, amount, method, utr, upi_id, bank_name, account_holder,
		       account_number, ifsc_code, mobile_number, status, rejection_reason,
		       decided_by, decided_at, created_at
		FROM funding_requests
		WHERE kind = $1`
	args := []any{kind}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return s.queryRequests(ctx, query, args...)
}

// HistoryForUser returns the caller's own requests of one kind, newest first.
func (s *FundingService) HistoryForUser(ctx context.Context, userID, kind string, limit int) ([]models.FundingRequest, error) {
	return s.queryRequests(ctx, `
		SELECT id, user_id, kind, amount, method, utr, upi_id, bank_name, account_holder,
		       account_number, ifsc_code, mobile_number, status, rejection_reason,
		       decided_by, decided_at, created_at
		FROM funding_requests
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, kind, limit)
}

func (s *FundingService) queryRequests(ctx context.Context, query string, args ...any) ([]models.FundingRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FundingRequest{}
	for rows.Next() {
		var req models.FundingRequest
		var decidedAt sql.NullTime
		err := rows.Scan(
			&req.ID, &req.UserID, &req.Kind, &req.Amount, &req.Method,
			&req.Details.UTR, &req.Details.UPIID, &req.Details.BankName,
			&req.Details.AccountHolder, &req.Details.AccountNumber,
			&req.Details.IFSCCode, &req.Details.MobileNumber,
			&req.Status, &req.RejectionReason, &req.DecidedBy, &decidedAt, &req.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if decidedAt.Valid {
			req.DecidedAt = &decidedAt.Time
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// validateMethodDetails checks the channel-specific required fields. Deposits
// carry the payment reference (UTR) of the transfer the player already made;
// withdrawals carry the payout destination.
func validateMethodDetails(kind, method string, d models.MethodDetails) error {
	if method != models.MethodUPI && method != models.MethodBank {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidMethodDetails, method)
	}

	if kind == models.KindDeposit {
		if strings.TrimSpace(d.UTR) == "" {
			return fmt.Errorf("%w: utr required", ErrInvalidMethodDetails)
		}
		return nil
	}

	switch method {
	case models.MethodUPI:
		if d.UPIID == "" || d.AccountHolder == "" || d.MobileNumber == "" {
			return fmt.Errorf("%w: upi_id, account_holder and mobile_number required", ErrInvalidMethodDetails)
		}
	case models.MethodBank:
		if d.BankName == "" || d.AccountHolder == "" || d.AccountNumber == "" || d.IFSCCode == "" || d.MobileNumber == "" {
			return fmt.Errorf("%w: bank_name, account_holder, account_number, ifsc_code and mobile_number required", ErrInvalidMethodDetails)
		}
	}
	return nil
}

// --- HTTP handlers ---

type depositRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	UTR    string  `json:"utr" validate:"required,min=6,max=30"`
	Method string  `json:"method" validate:"omitempty,oneof=upi bank"`
}

type withdrawalRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Method        string  `json:"method" validate:"required,oneof=upi bank"`
	BankName      string  `json:"bank_name"`
	AccountHolder string  `json:"account_holder"`
	AccountNumber string  `json:"account_number"`
	IFSCCode      string  `json:"ifsc_code"`
	UPIID         string  `json:"upi_id"`
	MobileNumber  string  `json:"mobile_number"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// SubmitDeposit handles deposit request creation
// @Summary Submit a deposit request
// @Description Claim a UPI/bank transfer by UTR; the deposit stays pending until an administrator approves it
// @Tags funding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body depositRequest true "Deposit claim"
// @Success 201 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Router /deposit/request [post]
func (s *FundingService) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req depositRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if req.Method == "" {
		req.Method = models.MethodUPI
	}

	created, err := s.Submit(r.Context(), userID, models.KindDeposit,
		PaiseFromRupees(req.Amount), req.Method, models.MethodDetails{UTR: req.UTR})
	if err != nil {
		SendDomainError(w, err)
		return
	}

	SendJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"deposit": requestJSON(created),
	})
}

// SubmitWithdrawal handles withdrawal request creation
// @Summary Submit a withdrawal request
// @Description Request a payout; blocked until the wager requirement is met
// @Tags funding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body withdrawalRequest true "Withdrawal request"
// @Success 201 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Router /withdrawal/request [post]
func (s *FundingService) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req withdrawalRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	created, err := s.Submit(r.Context(), userID, models.KindWithdrawal,
		PaiseFromRupees(req.Amount), req.Method, models.MethodDetails{
			UPIID:         req.UPIID,
			BankName:      req.BankName,
			AccountHolder: req.AccountHolder,
			AccountNumber: req.AccountNumber,
			IFSCCode:      strings.ToUpper(req.IFSCCode),
			MobileNumber:  req.MobileNumber,
		})
	if err != nil {
		SendDomainError(w, err)
		return
	}

	SendJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"withdrawal": requestJSON(created),
	})
}

// DepositHistory returns the caller's deposit requests, newest first
// @Summary Deposit history
// @Tags funding
// @Produce json
// @Security BearerAuth
// @Success 200 {array} map[string]any
// @Router /deposit/history [get]
func (s *FundingService) DepositHistory(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, models.KindDeposit)
}

// WithdrawalHistory returns the caller's withdrawal requests, newest first
// @Summary Withdrawal history
// @Tags funding
// @Produce json
// @Security BearerAuth
// @Success 200 {array} map[string]any
// @Router /withdrawal/history [get]
func (s *FundingService) WithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, models.KindWithdrawal)
}

func (s *FundingService) history(w http.ResponseWriter, r *http.Request, kind string) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requests, err := s.HistoryForUser(r.Context(), userID, kind, 50)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch history", http.StatusInternalServerError, nil)
		return
	}

	out := make([]map[string]any, 0, len(requests))
	for i := range requests {
		out = append(out, requestJSON(&requests[i]))
	}
	SendJSON(w, http.StatusOK, out)
}

// DecideDeposit handles POST /admin/deposits/{id}/{decision}
// @Summary Approve or reject a deposit
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param decision path string true "approve or reject"
// @Success 200 {object} map[string]any
// @Failure 409 {object} ErrorResponse
// @Router /admin/deposits/{id}/{decision} [post]
func (s *FundingService) DecideDeposit(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, models.KindDeposit)
}

// DecideWithdrawal handles POST /admin/withdrawals/{id}/{decision}
// @Summary Approve or reject a withdrawal
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param decision path string true "approve or reject"
// @Success 200 {object} map[string]any
// @Failure 409 {object} ErrorResponse
// @Router /admin/withdrawals/{id}/{decision} [post]
func (s *FundingService) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, models.KindWithdrawal)
}

func (s *FundingService) decide(w http.ResponseWriter, r *http.Request, kind string) {
	adminID, ok := r.Context().Value("userID").(string)
	if !ok || adminID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requestID := chi.URLParam(r, "id")
	decision := chi.URLParam(r, "decision")

	var (
		decided *models.FundingRequest
		err     error
	)
	switch decision {
	case "approve":
		decided, err = s.Approve(r.Context(), requestID, adminID, kind)
	case "reject":
		var req rejectRequest
		if decodeErr := DecodeStrict(w, r, &req); decodeErr != nil {
			SendDomainError(w, ErrMissingReason)
			return
		}
		if validateErr := s.validator.ValidateStruct(&req); validateErr != nil {
			SendDomainError(w, ErrMissingReason)
			return
		}
		decided, err = s.Reject(r.Context(), requestID, adminID, kind, req.Reason)
	default:
		SendErrorResponse(w, "Unknown decision", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendDomainError(w, err)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"request": requestJSON(decided),
	})
}

// requestJSON converts paise to rupees for the HTTP surface.
func requestJSON(req *models.FundingRequest) map[string]any {
	out := map[string]any{
		"id":         req.ID,
		"user_id":    req.UserID,
		"kind":       req.Kind,
		"amount":     RupeesFromPaise(req.Amount),
		"method":     req.Method,
		"status":     req.Status,
		"created_at": req.CreatedAt,
	}
	if req.Details.UTR != "" {
		out["utr"] = req.Details.UTR
	}
	if req.Details.UPIID != "" {
		out["upi_id"] = req.Details.UPIID
	}
	if req.Details.BankName != "" {
		out["bank_name"] = req.Details.BankName
	}
	if req.Details.AccountHolder != "" {
		out["account_holder"] = req.Details.AccountHolder
	}
	if req.Details.AccountNumber != "" {
		out["account_number"] = req.Details.AccountNumber
	}
	if req.Details.IFSCCode != "" {
		out["ifsc_code"] = req.Details.IFSCCode
	}
	if req.Details.MobileNumber != "" {
		out["mobile_number"] = req.Details.MobileNumber
	}
	if req.RejectionReason != "" {
		out["rejection_reason"] = req.RejectionReason
	}
	if req.DecidedAt != nil {
		out["decided_at"] = req.DecidedAt
		out["decided_by"] = req.DecidedBy
	}
	return out
}
