package store

import (
	"context"
	"time"

	"github.com/congo-pay/wallet_core/internal/domain"
)

// Change is one atomic unit of work against a single wallet: the wallet's
// new state plus the reservation upsert and ledger append that document it.
// Everything in a Change is persisted together or not at all.
type Change struct {
	Wallet      domain.Wallet
	Reservation *domain.Reservation
	Entry       *domain.LedgerEntry
}

// Store persists wallets, reservations and the ledger log. Apply is the
// only mutation primitive besides CreateWallet: it writes the change iff
// the stored wallet version still equals Change.Wallet.Version, bumping the
// version by one, and returns domain.ErrConcurrencyConflict otherwise.
type Store interface {
	// CreateWallet inserts the wallet. If the account already has one, the
	// existing wallet is returned unchanged.
	CreateWallet(ctx context.Context, w domain.Wallet) (domain.Wallet, error)
	WalletByID(ctx context.Context, id string) (domain.Wallet, error)
	WalletByAccount(ctx context.Context, accountID string) (domain.Wallet, error)

	Apply(ctx context.Context, change Change) error

	ReservationByID(ctx context.Context, id string) (domain.Reservation, error)
	ReservationByReference(ctx context.Context, walletID, referenceID string) (domain.Reservation, error)
	// ExpiredReservations returns reservations the sweep must reclaim, oldest
	// first, capped at limit: live ones whose expiry has passed, plus any
	// already marked expired but not yet released.
	ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)

	// EntryByReference fetches the entry recorded for a reference, narrowed
	// to one entry type when entryType is non-empty. Credits and debits keep
	// separate idempotency replays even if a caller reuses a reference across
	// both.
	EntryByReference(ctx context.Context, walletID, referenceID, entryType string) (domain.LedgerEntry, error)
	// EntriesByWallet pages the ledger log ascending by sequence. Pass
	// afterSeq=0 to start from the beginning.
	EntriesByWallet(ctx context.Context, walletID string, afterSeq int64, limit int) ([]domain.LedgerEntry, error)
}
