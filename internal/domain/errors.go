package domain

import "errors"

var (
	// ErrValidation indicates a malformed request (bad amount, currency or TTL).
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance occurs when a wallet's available balance cannot
	// cover a requested hold.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletNotFound indicates no wallet exists for the account.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletNotActive indicates the wallet is frozen or closed.
	ErrWalletNotActive = errors.New("wallet not active")

	// ErrWalletNotEmpty indicates a close was attempted while funds remain.
	ErrWalletNotEmpty = errors.New("wallet balance must be zero to close")

	// ErrReservationNotFound indicates no reservation exists for the identifier.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationInvalidState indicates the reservation cannot make the
	// requested transition from its current status.
	ErrReservationInvalidState = errors.New("reservation in invalid state")

	// ErrEntryNotFound indicates no ledger entry exists for the reference.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrConcurrencyConflict indicates the wallet version changed underneath a
	// mutation. It is retried internally and only surfaces once the retry
	// budget is exhausted.
	ErrConcurrencyConflict = errors.New("concurrent wallet update")

	// ErrInvariantViolation flags a wallet state that breaks the balance
	// invariants. It must never occur in correct operation; it exists as a
	// safety net and is never retried.
	ErrInvariantViolation = errors.New("wallet invariant violated")
)
