package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_core/internal/domain"
)

func newWallet(balance int64) domain.Wallet {
	now := time.Now().UTC()
	return domain.Wallet{
		ID:        uuid.NewString(),
		AccountID: uuid.NewString(),
		Currency:  "XAF",
		Balance:   balance,
		Status:    domain.WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateWalletIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	w := newWallet(0)
	created, err := s.CreateWallet(ctx, w)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := newWallet(0)
	dup.AccountID = w.AccountID
	again, err := s.CreateWallet(ctx, dup)
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("expected existing wallet %s, got %s", created.ID, again.ID)
	}
}

func TestApplyVersionConflict(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	w, _ := s.CreateWallet(ctx, newWallet(1_000))

	first := w
	first.Balance = 1_500
	if err := s.Apply(ctx, Change{Wallet: first}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Same base version again: the stored version moved on, so this must lose.
	second := w
	second.Balance = 2_000
	if err := s.Apply(ctx, Change{Wallet: second}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}

	stored, _ := s.WalletByID(ctx, w.ID)
	if stored.Balance != 1_500 || stored.Version != w.Version+1 {
		t.Fatalf("losing write must not apply: %+v", stored)
	}
}

func TestApplyRejectsDuplicateReference(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, newWallet(1_000))

	res := domain.Reservation{ID: uuid.NewString(), WalletID: w.ID, ReferenceID: "ref-1", Amount: 100, Status: domain.ReservationReserved}
	held := w
	held.Reserved = 100
	if err := s.Apply(ctx, Change{Wallet: held, Reservation: &res}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	current, _ := s.WalletByID(ctx, w.ID)
	other := domain.Reservation{ID: uuid.NewString(), WalletID: w.ID, ReferenceID: "ref-1", Amount: 100, Status: domain.ReservationReserved}
	current.Reserved = 200
	if err := s.Apply(ctx, Change{Wallet: current, Reservation: &other}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict for duplicate reference, got %v", err)
	}
}

func TestApplyStatusUpdateKeepsReference(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, newWallet(1_000))

	res := domain.Reservation{ID: uuid.NewString(), WalletID: w.ID, ReferenceID: "ref-1", Amount: 100, Status: domain.ReservationReserved}
	held := w
	held.Reserved = 100
	if err := s.Apply(ctx, Change{Wallet: held, Reservation: &res}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Re-upserting the same reservation (status change) is not a duplicate.
	current, _ := s.WalletByID(ctx, w.ID)
	res.Status = domain.ReservationReleased
	current.Reserved = 0
	if err := s.Apply(ctx, Change{Wallet: current, Reservation: &res}); err != nil {
		t.Fatalf("status update apply: %v", err)
	}

	stored, err := s.ReservationByReference(ctx, w.ID, "ref-1")
	if err != nil {
		t.Fatalf("reservation lookup: %v", err)
	}
	if stored.Status != domain.ReservationReleased {
		t.Fatalf("expected released, got %s", stored.Status)
	}
}

func TestExpiredReservations(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, newWallet(1_000))

	now := time.Now().UTC()
	mk := func(ref string, expires time.Time, status string) {
		res := domain.Reservation{ID: uuid.NewString(), WalletID: w.ID, ReferenceID: ref, Amount: 10, Status: status, ExpiresAt: expires}
		current, _ := s.WalletByID(ctx, w.ID)
		if err := s.Apply(ctx, Change{Wallet: current, Reservation: &res}); err != nil {
			t.Fatalf("seed reservation %s: %v", ref, err)
		}
	}
	mk("stale-1", now.Add(-2*time.Minute), domain.ReservationReserved)
	mk("stale-2", now.Add(-time.Minute), domain.ReservationReserved)
	mk("live", now.Add(time.Hour), domain.ReservationReserved)
	mk("done", now.Add(-time.Hour), domain.ReservationCommitted)

	stale, err := s.ExpiredReservations(ctx, now, 10)
	if err != nil {
		t.Fatalf("expired reservations: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected 2 stale reservations, got %d", len(stale))
	}
	if stale[0].ReferenceID != "stale-1" {
		t.Fatalf("expected oldest first, got %s", stale[0].ReferenceID)
	}
}

func TestEntriesByWalletPaging(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, newWallet(0))

	for i := 0; i < 5; i++ {
		current, _ := s.WalletByID(ctx, w.ID)
		current.Balance += 100
		entry := domain.LedgerEntry{
			ID:           uuid.NewString(),
			WalletID:     w.ID,
			ReferenceID:  uuid.NewString(),
			Type:         domain.EntryCredit,
			Amount:       100,
			BalanceAfter: current.Balance,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.Apply(ctx, Change{Wallet: current, Entry: &entry}); err != nil {
			t.Fatalf("apply entry %d: %v", i, err)
		}
	}

	first, err := s.EntriesByWallet(ctx, w.ID, 0, 3)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(first))
	}

	rest, err := s.EntriesByWallet(ctx, w.ID, first[len(first)-1].Sequence, 10)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", len(rest))
	}
	if rest[0].Sequence <= first[len(first)-1].Sequence {
		t.Fatalf("pages must not overlap")
	}
}
