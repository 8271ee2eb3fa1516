package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/config"
	"github.com/wingopay/backend/internal/models"
)

// WagerService tracks the rolling wagering requirement per account. The
// requirement is raised when deposits are approved and must be satisfied
// before a withdrawal may be submitted or approved.
type WagerService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *LedgerService
	cfg    *config.WalletConfig
	audit  *audit.Logger
}

func NewWagerService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, cfg *config.WalletConfig) *WagerService {
	return &WagerService{
		db:     db,
		redis:  redisClient,
		ledger: ledger,
		cfg:    cfg,
		audit:  audit.NewLogger(),
	}
}

// SettlementMessage is the payload the round engine pushes onto the
// settlement queue for every settled bet. Amounts are in rupees.
type SettlementMessage struct {
	UserID    string  `json:"user_id"`
	BetID     string  `json:"bet_id"`
	Stake     float64 `json:"stake"`
	WinAmount float64 `json:"win_amount"`
}

// IsSatisfied reports whether total_wagered has reached the requirement.
func (s *WagerService) IsSatisfied(ctx context.Context, userID string) (bool, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.TotalWagered >= account.WagerRequirement, nil
}

// Remaining returns how much more must be wagered before withdrawal, in paise.
func (s *WagerService) Remaining(ctx context.Context, userID string) (int64, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	remaining := account.WagerRequirement - account.TotalWagered
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RecordWager adds a settled bet's stake to the account's running total.
// total_wagered only ever grows; the stake counts regardless of win or loss.
func (s *WagerService) RecordWager(ctx context.Context, userID string, stake int64) error {
	if stake <= 0 {
		return fmt.Errorf("stake must be positive")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.recordWagerTx(tx, userID, stake); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *WagerService) recordWagerTx(tx *sql.Tx, userID string, stake int64) error {
	account, err := s.ledger.lockAccount(tx, userID)
	if err != nil {
		return err
	}
	if account.Locked {
		return ErrAccountLocked
	}

	_, err = tx.Exec(`
		UPDATE users SET total_wagered = total_wagered + $1, updated_at = $2 WHERE id = $3`,
		stake, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("record wager: %w", err)
	}
	return nil
}

// CreditWinnings credits a winning bet's payout through the ledger.
func (s *WagerService) CreditWinnings(ctx context.Context, userID string, amount int64, betID string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("win amount must be positive")
	}
	return s.ledger.AppendEntry(ctx, userID, amount, models.ReasonWagerSettlement, betID, "")
}

// SettleBet applies one settled bet atomically: the stake joins total_wagered
// and the net balance effect (win minus stake) goes through the ledger. A bet
// whose payout equals its stake moves no money and writes no entry.
func (s *WagerService) SettleBet(ctx context.Context, msg SettlementMessage) error {
	stake := PaiseFromRupees(msg.Stake)
	win := PaiseFromRupees(msg.WinAmount)
	if stake <= 0 {
		return fmt.Errorf("stake must be positive")
	}
	if win < 0 {
		return fmt.Errorf("win amount cannot be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.recordWagerTx(tx, msg.UserID, stake); err != nil {
		return err
	}

	delta := win - stake
	var entry *models.LedgerEntry
	if delta != 0 {
		entry, err = s.ledger.AppendEntryTx(tx, msg.UserID, delta, models.ReasonWagerSettlement, msg.BetID, "")
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if entry != nil {
		s.audit.LogEntry(msg.UserID, msg.BetID, models.ReasonWagerSettlement, delta, entry.ResultingBalance)
	}
	return nil
}

// RaiseRequirementTx raises the wager requirement after a deposit approval,
// inside the approval's transaction. The account row is already locked by the
// caller. Policy is configurable: additive stacks deposits, max replaces the
// requirement with the larger target.
func (s *WagerService) RaiseRequirementTx(tx *sql.Tx, userID string, depositAmount int64) error {
	raise := int64(math.Round(float64(depositAmount) * s.cfg.WagerMultiplier))

	var query string
	switch s.cfg.WagerPolicy {
	case config.WagerPolicyMax:
		query = `UPDATE users SET wager_requirement = GREATEST(wager_requirement, $1), updated_at = $2 WHERE id = $3`
	default:
		query = `UPDATE users SET wager_requirement = wager_requirement + $1, updated_at = $2 WHERE id = $3`
	}

	if _, err := tx.Exec(query, raise, time.Now(), userID); err != nil {
		return fmt.Errorf("raise wager requirement: %w", err)
	}
	return nil
}

// RunSettlementConsumer drains the round engine's settlement queue until ctx
// is cancelled. Failed settlements are pushed back for retry; after the
// configured number of failures a message is parked on the dead-letter list
// so one bad bet cannot cycle through the queue forever.
func (s *WagerService) RunSettlementConsumer(ctx context.Context) {
	if s.redis == nil {
		log.Println("[WAGER] Redis unavailable, settlement consumer disabled")
		return
	}

	deadQueue := s.cfg.SettlementQueue + ":dead"
	failures := map[string]int{}

	log.Printf("[WAGER] Settlement consumer listening on %s", s.cfg.SettlementQueue)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := s.redis.BLPop(ctx, 5*time.Second, s.cfg.SettlementQueue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WAGER] Queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BLPop returns [key, value]
		var msg SettlementMessage
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			log.Printf("[WAGER] Malformed settlement message dropped: %v", err)
			continue
		}

		if err := s.SettleBet(ctx, msg); err != nil {
			log.Printf("[WAGER] Settlement failed for bet %s: %v", msg.BetID, err)
			s.audit.LogError(msg.UserID, msg.BetID, err)

			failures[msg.BetID]++
			if failures[msg.BetID] >= s.cfg.SettlementMaxRetries {
				log.Printf("[WAGER] Bet %s failed %d times, parked on %s", msg.BetID, failures[msg.BetID], deadQueue)
				s.redis.RPush(ctx, deadQueue, result[1])
				delete(failures, msg.BetID)
				continue
			}

			s.redis.RPush(ctx, s.cfg.SettlementQueue, result[1])
			time.Sleep(time.Second)
			continue
		}
		delete(failures, msg.BetID)
	}
}
