package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/congo-pay/wallet_core/internal/domain"
)

type memoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]domain.Wallet // keyed by wallet ID
	accountIndex map[string]string        // accountID -> wallet ID
	reservations map[string]domain.Reservation
	refIndex     map[string]string // walletID+"/"+referenceID -> reservation ID
	entries      []domain.LedgerEntry
	entrySeq     int64
}

// NewMemory constructs a concurrency-safe in-memory store used in tests and
// dev mode. Version checks behave exactly like the Postgres implementation.
func NewMemory() Store {
	return &memoryStore{
		wallets:      make(map[string]domain.Wallet),
		accountIndex: make(map[string]string),
		reservations: make(map[string]domain.Reservation),
		refIndex:     make(map[string]string),
	}
}

func refKey(walletID, referenceID string) string {
	return walletID + "/" + referenceID
}

func (s *memoryStore) CreateWallet(_ context.Context, w domain.Wallet) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.accountIndex[w.AccountID]; ok {
		return s.wallets[id], nil
	}
	s.wallets[w.ID] = w
	s.accountIndex[w.AccountID] = w.ID
	return w, nil
}

func (s *memoryStore) WalletByID(_ context.Context, id string) (domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}
	return w, nil
}

func (s *memoryStore) WalletByAccount(_ context.Context, accountID string) (domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.accountIndex[accountID]
	if !ok {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}
	return s.wallets[id], nil
}

func (s *memoryStore) Apply(_ context.Context, change Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.wallets[change.Wallet.ID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if stored.Version != change.Wallet.Version {
		return domain.ErrConcurrencyConflict
	}
	if change.Reservation != nil {
		// Enforce the (walletID, referenceID) uniqueness constraint for new
		// reservations; a racing duplicate insert resolves like any other
		// conflicting write and the caller's retry sees the winner.
		key := refKey(change.Reservation.WalletID, change.Reservation.ReferenceID)
		if existingID, exists := s.refIndex[key]; exists && existingID != change.Reservation.ID {
			return domain.ErrConcurrencyConflict
		}
	}

	w := change.Wallet
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	s.wallets[w.ID] = w

	if change.Reservation != nil {
		r := *change.Reservation
		s.reservations[r.ID] = r
		s.refIndex[refKey(r.WalletID, r.ReferenceID)] = r.ID
	}
	if change.Entry != nil {
		e := *change.Entry
		s.entrySeq++
		e.Sequence = s.entrySeq
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *memoryStore) ReservationByID(_ context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (s *memoryStore) ReservationByReference(_ context.Context, walletID, referenceID string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.refIndex[refKey(walletID, referenceID)]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return s.reservations[id], nil
}

func (s *memoryStore) ExpiredReservations(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []domain.Reservation
	for _, r := range s.reservations {
		// Expired-but-not-released holds stay in the sweep's view so an
		// interrupted sweep finishes the release on a later pass.
		reclaimable := r.Status == domain.ReservationReserved || r.Status == domain.ReservationExpired
		if reclaimable && r.ExpiresAt.Before(now) {
			stale = append(stale, r)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ExpiresAt.Before(stale[j].ExpiresAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *memoryStore) EntryByReference(_ context.Context, walletID, referenceID, entryType string) (domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.WalletID == walletID && e.ReferenceID == referenceID && (entryType == "" || e.Type == entryType) {
			return e, nil
		}
	}
	return domain.LedgerEntry{}, domain.ErrEntryNotFound
}

func (s *memoryStore) EntriesByWallet(_ context.Context, walletID string, afterSeq int64, limit int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var page []domain.LedgerEntry
	for _, e := range s.entries {
		if e.WalletID != walletID || e.Sequence <= afterSeq {
			continue
		}
		page = append(page, e)
		if limit > 0 && len(page) == limit {
			break
		}
	}
	return page, nil
}
