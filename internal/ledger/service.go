// Package ledger exposes the read side of the append-only money-movement
// log. Appends themselves only happen inside store changes so they share
// the atomic unit of the wallet mutation they document.
package ledger

import (
	"context"

	"github.com/congo-pay/wallet_core/internal/domain"
	"github.com/congo-pay/wallet_core/internal/store"
)

const defaultPageSize = 100

// Service reads the ledger log for reconciliation and idempotency lookups.
type Service struct {
	store store.Store
}

// NewService builds a ledger read service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Page is one slice of a wallet's ledger log, ascending by sequence. The
// cursor restarts the listing exactly where the page ended.
type Page struct {
	Entries []domain.LedgerEntry
	Cursor  int64
}

// List returns the account's ledger entries after the cursor, oldest first.
func (s *Service) List(ctx context.Context, accountID string, afterSeq int64, limit int) (Page, error) {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	entries, err := s.store.EntriesByWallet(ctx, w.ID, afterSeq, limit)
	if err != nil {
		return Page{}, err
	}
	cursor := afterSeq
	if len(entries) > 0 {
		cursor = entries[len(entries)-1].Sequence
	}
	return Page{Entries: entries, Cursor: cursor}, nil
}

// FindByReference returns the entry written for a reference regardless of
// its type, if any.
func (s *Service) FindByReference(ctx context.Context, accountID, referenceID string) (domain.LedgerEntry, error) {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return s.store.EntryByReference(ctx, w.ID, referenceID, "")
}

// Reconcile walks the full log and returns the sum of signed entry amounts,
// which must equal the wallet's balance delta since inception.
func (s *Service) Reconcile(ctx context.Context, accountID string) (int64, error) {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	var sum int64
	var cursor int64
	for {
		entries, err := s.store.EntriesByWallet(ctx, w.ID, cursor, defaultPageSize)
		if err != nil {
			return 0, err
		}
		if len(entries) == 0 {
			return sum, nil
		}
		for _, e := range entries {
			sum += e.Signed()
		}
		cursor = entries[len(entries)-1].Sequence
	}
}
