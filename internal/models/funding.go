package models

import "time"

// Funding request kinds and statuses.
const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Payment channels.
const (
	MethodUPI  = "upi"
	MethodBank = "bank"
)

// MethodDetails carries the channel-specific payout/payin fields. Which fields
// are required depends on the method; see FundingService validation.
type MethodDetails struct {
	UTR           string `json:"utr,omitempty" db:"utr"`
	UPIID         string `json:"upi_id,omitempty" db:"upi_id"`
	BankName      string `json:"bank_name,omitempty" db:"bank_name"`
	AccountHolder string `json:"account_holder,omitempty" db:"account_holder"`
	AccountNumber string `json:"account_number,omitempty" db:"account_number"`
	IFSCCode      string `json:"ifsc_code,omitempty" db:"ifsc_code"`
	MobileNumber  string `json:"mobile_number,omitempty" db:"mobile_number"`
}

// FundingRequest is a deposit or withdrawal awaiting or having received an
// administrator decision. A request transitions out of pending exactly once
// and is immutable afterwards.
type FundingRequest struct {
	ID              string        `json:"id" db:"id"`
	UserID          string        `json:"user_id" db:"user_id"`
	Kind            string        `json:"kind" db:"kind"`
	Amount          int64         `json:"amount" db:"amount"` // paise
	Method          string        `json:"method" db:"method"`
	Details         MethodDetails `json:"details"`
	Status          string        `json:"status" db:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty" db:"rejection_reason"`
	DecidedBy       string        `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// Terminal reports whether the request already received its one decision.
func (r *FundingRequest) Terminal() bool {
	return r.Status != StatusPending
}
