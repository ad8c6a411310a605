package domain

import (
	"fmt"
	"time"
)

// Wallet statuses.
const (
	WalletActive = "active"
	WalletFrozen = "frozen"
	WalletClosed = "closed"
)

// Wallet is the balance aggregate for one account. All amounts are integer
// minor units of Currency. Version increases by one on every applied
// mutation and is the unit of optimistic concurrency control.
type Wallet struct {
	ID        string
	AccountID string
	Currency  string
	Balance   int64
	Reserved  int64
	Status    string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available returns the balance not held by reservations.
func (w Wallet) Available() int64 {
	return w.Balance - w.Reserved
}

// Hold places a provisional hold on available funds.
func (w *Wallet) Hold(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: hold amount must be positive", ErrValidation)
	}
	if w.Status != WalletActive {
		return ErrWalletNotActive
	}
	if w.Available() < amount {
		return ErrInsufficientBalance
	}
	w.Reserved += amount
	return nil
}

// CommitHold converts a previously held amount into a debit.
func (w *Wallet) CommitHold(amount int64) error {
	if amount <= 0 || w.Reserved < amount || w.Balance < amount {
		return fmt.Errorf("%w: commit of %d against balance=%d reserved=%d", ErrInvariantViolation, amount, w.Balance, w.Reserved)
	}
	w.Balance -= amount
	w.Reserved -= amount
	return nil
}

// ReleaseHold returns a held amount to availability. The balance is
// untouched because a hold never moved money.
func (w *Wallet) ReleaseHold(amount int64) error {
	if amount <= 0 || w.Reserved < amount {
		return fmt.Errorf("%w: release of %d against reserved=%d", ErrInvariantViolation, amount, w.Reserved)
	}
	w.Reserved -= amount
	return nil
}

// Credit increases the balance directly. Inbound funds need no reservation.
func (w *Wallet) Credit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	if w.Status == WalletClosed {
		return ErrWalletNotActive
	}
	w.Balance += amount
	return nil
}

// Close marks the wallet closed. Only an empty wallet may close.
func (w *Wallet) Close() error {
	if w.Balance != 0 || w.Reserved != 0 {
		return ErrWalletNotEmpty
	}
	w.Status = WalletClosed
	return nil
}

// CheckInvariants verifies the balance invariants hold:
// balance >= 0 and 0 <= reserved <= balance.
func (w Wallet) CheckInvariants() error {
	if w.Balance < 0 {
		return fmt.Errorf("%w: negative balance %d", ErrInvariantViolation, w.Balance)
	}
	if w.Reserved < 0 {
		return fmt.Errorf("%w: negative reserved balance %d", ErrInvariantViolation, w.Reserved)
	}
	if w.Reserved > w.Balance {
		return fmt.Errorf("%w: reserved %d exceeds balance %d", ErrInvariantViolation, w.Reserved, w.Balance)
	}
	return nil
}
