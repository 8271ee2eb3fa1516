package services

import (
	"errors"
	"net/http"

	"github.com/lib/pq"
)

// Recoverable domain errors. All are reported to the caller as the reason an
// operation did not proceed; none leave the ledger inconsistent because the
// check and the mutation share one transaction.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountLocked          = errors.New("account locked")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidMethodDetails   = errors.New("invalid method details")
	ErrAmountOutOfRange       = errors.New("amount out of range")
	ErrWagerRequirementNotMet = errors.New("wager requirement not met")
	ErrAlreadyDecided         = errors.New("request already decided")
	ErrMissingReason          = errors.New("rejection reason required")
	ErrRequestNotFound        = errors.New("funding request not found")
	ErrBusy                   = errors.New("account busy, retry")
)

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, ErrAlreadyDecided):
		return http.StatusConflict
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidMethodDetails),
		errors.Is(err, ErrAmountOutOfRange),
		errors.Is(err, ErrWagerRequirementNotMet),
		errors.Is(err, ErrMissingReason):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// mapLockError translates a Postgres lock_timeout failure (55P03) into ErrBusy
// so callers see a bounded, retryable error instead of a driver error.
func mapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
		return ErrBusy
	}
	return err
}
