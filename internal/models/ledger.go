package models

import "time"

// Ledger entry reasons. Every balance change carries exactly one of these.
const (
	ReasonDepositApproved    = "deposit_approved"
	ReasonWithdrawalApproved = "withdrawal_approved"
	ReasonAdminCredit        = "admin_credit"
	ReasonAdminDebit         = "admin_debit"
	ReasonWagerSettlement    = "wager_settlement"
)

// LedgerEntry is the append-only audit record of one balance change. Entries
// are never updated or deleted; the user's balance must equal the sum of all
// deltas for that user.
type LedgerEntry struct {
	ID               int64     `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Delta            int64     `json:"delta" db:"delta"` // signed, in paise
	Reason           string    `json:"reason" db:"reason"`
	ReferenceID      string    `json:"reference_id" db:"reference_id"` // funding request or bet id
	ResultingBalance int64     `json:"resulting_balance" db:"resulting_balance"`
	Note             string    `json:"note,omitempty" db:"note"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
