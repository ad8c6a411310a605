package domain

import (
	"errors"
	"testing"
)

func activeWallet(balance, reserved int64) Wallet {
	return Wallet{ID: "w1", AccountID: "acct", Currency: "XAF", Balance: balance, Reserved: reserved, Status: WalletActive}
}

func TestHoldReducesAvailability(t *testing.T) {
	w := activeWallet(1_000, 0)
	if err := w.Hold(400); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if w.Balance != 1_000 || w.Reserved != 400 || w.Available() != 600 {
		t.Fatalf("unexpected state after hold: %+v", w)
	}
}

func TestHoldRejectsOverdraw(t *testing.T) {
	w := activeWallet(1_000, 800)
	if err := w.Hold(300); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if w.Reserved != 800 {
		t.Fatalf("failed hold must not change state, reserved=%d", w.Reserved)
	}
}

func TestHoldRejectsInactiveWallet(t *testing.T) {
	w := activeWallet(1_000, 0)
	w.Status = WalletFrozen
	if err := w.Hold(100); !errors.Is(err, ErrWalletNotActive) {
		t.Fatalf("expected wallet not active, got %v", err)
	}
}

func TestCommitHoldMovesMoneyOnce(t *testing.T) {
	w := activeWallet(1_000, 400)
	if err := w.CommitHold(400); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if w.Balance != 600 || w.Reserved != 0 {
		t.Fatalf("unexpected state after commit: %+v", w)
	}
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants broken: %v", err)
	}
}

func TestCommitHoldWithoutReservationIsInvariantViolation(t *testing.T) {
	w := activeWallet(1_000, 0)
	if err := w.CommitHold(400); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestReleaseHoldKeepsBalance(t *testing.T) {
	w := activeWallet(1_000, 300)
	if err := w.ReleaseHold(300); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if w.Balance != 1_000 || w.Reserved != 0 {
		t.Fatalf("release must not move money: %+v", w)
	}
}

func TestCreditOnClosedWallet(t *testing.T) {
	w := activeWallet(0, 0)
	w.Status = WalletClosed
	if err := w.Credit(100); !errors.Is(err, ErrWalletNotActive) {
		t.Fatalf("expected wallet not active, got %v", err)
	}
}

func TestCloseRequiresEmptyWallet(t *testing.T) {
	w := activeWallet(500, 0)
	if err := w.Close(); !errors.Is(err, ErrWalletNotEmpty) {
		t.Fatalf("expected wallet not empty, got %v", err)
	}
	w.Balance = 0
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if w.Status != WalletClosed {
		t.Fatalf("expected closed status, got %s", w.Status)
	}
}

func TestCheckInvariants(t *testing.T) {
	cases := []struct {
		name     string
		wallet   Wallet
		violated bool
	}{
		{"ok", activeWallet(100, 50), false},
		{"zero", activeWallet(0, 0), false},
		{"negative balance", activeWallet(-1, 0), true},
		{"negative reserved", activeWallet(100, -5), true},
		{"reserved exceeds balance", activeWallet(100, 200), true},
	}
	for _, tc := range cases {
		err := tc.wallet.CheckInvariants()
		if tc.violated && !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("%s: expected violation, got %v", tc.name, err)
		}
		if !tc.violated && err != nil {
			t.Fatalf("%s: unexpected violation: %v", tc.name, err)
		}
	}
}
