package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_core/internal/domain"
	"github.com/congo-pay/wallet_core/internal/guard"
	"github.com/congo-pay/wallet_core/internal/logging"
	"github.com/congo-pay/wallet_core/internal/notification"
	"github.com/congo-pay/wallet_core/internal/store"
)

type testNotifier struct {
	messages []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func newTestService() (*Service, *testNotifier) {
	backend := store.NewMemory()
	logger := logging.Discard()
	g := guard.New(backend, 5, time.Millisecond, logger)
	notifier := &testNotifier{}
	return NewService(backend, g, notifier, logger), notifier
}

func TestCreateIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	accountID := uuid.NewString()

	first, err := svc.Create(ctx, CreateInput{AccountID: accountID, Currency: "XAF"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, CreateInput{AccountID: accountID, Currency: "XAF"})
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing wallet %s, got %s", first.ID, second.ID)
	}
}

func TestCreateValidatesCurrency(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), CreateInput{AccountID: "a", Currency: "xaf"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreditWritesEntryAndIsIdempotent(t *testing.T) {
	svc, notifier := newTestService()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	entry, err := svc.Credit(ctx, CreditInput{AccountID: accountID, Amount: 100_000, ReferenceID: "D", Description: "topup"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if entry.Type != domain.EntryCredit || entry.Amount != 100_000 || entry.BalanceAfter != 100_000 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// Retrying the same reference must replay the original entry.
	again, err := svc.Credit(ctx, CreditInput{AccountID: accountID, Amount: 100_000, ReferenceID: "D"})
	if err != nil {
		t.Fatalf("repeat credit: %v", err)
	}
	if again.ID != entry.ID {
		t.Fatalf("expected replayed entry %s, got %s", entry.ID, again.ID)
	}

	balance, err := svc.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != 100_000 {
		t.Fatalf("double credit applied, balance=%d", balance.Balance)
	}
	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindCredited {
		t.Fatalf("expected one credited notification, got %+v", notifier.messages)
	}
}

func TestCreditUnknownAccount(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Credit(context.Background(), CreditInput{AccountID: "missing", Amount: 100, ReferenceID: "x"}); !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestFreezeBlocksNothingButReserves(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Freeze(ctx, accountID); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	// Credits still land on a frozen wallet.
	if _, err := svc.Credit(ctx, CreditInput{AccountID: accountID, Amount: 50, ReferenceID: "r"}); err != nil {
		t.Fatalf("credit on frozen wallet: %v", err)
	}

	if err := svc.Unfreeze(ctx, accountID); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	w, _ := svc.Get(ctx, accountID)
	if w.Status != domain.WalletActive {
		t.Fatalf("expected active wallet, got %s", w.Status)
	}
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	accountID := uuid.NewString()
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Credit(ctx, CreditInput{AccountID: accountID, Amount: 10, ReferenceID: "r"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := svc.Close(ctx, accountID); !errors.Is(err, domain.ErrWalletNotEmpty) {
		t.Fatalf("expected wallet not empty, got %v", err)
	}
}
