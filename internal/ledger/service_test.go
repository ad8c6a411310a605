package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_core/internal/domain"
	"github.com/congo-pay/wallet_core/internal/guard"
	"github.com/congo-pay/wallet_core/internal/logging"
	"github.com/congo-pay/wallet_core/internal/reservation"
	"github.com/congo-pay/wallet_core/internal/store"
	"github.com/congo-pay/wallet_core/internal/wallet"
)

type fixture struct {
	wallets      *wallet.Service
	reservations *reservation.Manager
	ledger       *Service
}

func newFixture() fixture {
	backend := store.NewMemory()
	logger := logging.Discard()
	g := guard.New(backend, 5, time.Millisecond, logger)
	return fixture{
		wallets:      wallet.NewService(backend, g, nil, logger),
		reservations: reservation.NewManager(backend, g, nil, 0, logger),
		ledger:       NewService(backend),
	}
}

func TestReconcileMatchesBalanceDelta(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := f.wallets.Create(ctx, wallet.CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A mix of credits and committed debits.
	for i := 0; i < 4; i++ {
		if _, err := f.wallets.Credit(ctx, wallet.CreditInput{AccountID: accountID, Amount: 250_000, ReferenceID: fmt.Sprintf("top-%d", i)}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		r, err := f.reservations.Reserve(ctx, reservation.ReserveInput{AccountID: accountID, Amount: 100_000, ReferenceID: fmt.Sprintf("out-%d", i)})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if _, err := f.reservations.Commit(ctx, r.ID); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	// A released hold must not show up in the ledger at all.
	r, err := f.reservations.Reserve(ctx, reservation.ReserveInput{AccountID: accountID, Amount: 50_000, ReferenceID: "cancelled"})
	if err != nil {
		t.Fatalf("reserve cancelled: %v", err)
	}
	if err := f.reservations.Release(ctx, r.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	sum, err := f.ledger.Reconcile(ctx, accountID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	balance, err := f.wallets.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if sum != balance.Balance {
		t.Fatalf("ledger sum %d does not reproduce balance %d", sum, balance.Balance)
	}
	if sum != 700_000 {
		t.Fatalf("expected net movement 700000, got %d", sum)
	}
}

func TestListIsOrderedAndRestartable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := f.wallets.Create(ctx, wallet.CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 7; i++ {
		if _, err := f.wallets.Credit(ctx, wallet.CreditInput{AccountID: accountID, Amount: 10, ReferenceID: fmt.Sprintf("c-%d", i)}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	var all []string
	var cursor int64
	for {
		page, err := f.ledger.List(ctx, accountID, cursor, 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page.Entries) == 0 {
			break
		}
		for _, e := range page.Entries {
			all = append(all, e.ReferenceID)
		}
		cursor = page.Cursor
	}

	if len(all) != 7 {
		t.Fatalf("expected 7 entries across pages, got %d", len(all))
	}
	for i, ref := range all {
		if ref != fmt.Sprintf("c-%d", i) {
			t.Fatalf("entries out of order at %d: %s", i, ref)
		}
	}
}

func TestFindByReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := f.wallets.Create(ctx, wallet.CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	entry, err := f.wallets.Credit(ctx, wallet.CreditInput{AccountID: accountID, Amount: 42, ReferenceID: "needle"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	found, err := f.ledger.FindByReference(ctx, accountID, "needle")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != entry.ID {
		t.Fatalf("expected entry %s, got %s", entry.ID, found.ID)
	}

	if _, err := f.ledger.FindByReference(ctx, accountID, "absent"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected entry not found, got %v", err)
	}
}
