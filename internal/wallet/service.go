package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_core/internal/domain"
	"github.com/congo-pay/wallet_core/internal/guard"
	"github.com/congo-pay/wallet_core/internal/notification"
	"github.com/congo-pay/wallet_core/internal/store"
)

const defaultCurrency = "XAF"

// errReplayed signals inside a mutation closure that the reference was
// already applied and the prior result should be returned unchanged.
var errReplayed = errors.New("reference already applied")

// Service exposes wallet lifecycle and direct-credit operations.
type Service struct {
	store    store.Store
	guard    *guard.Guard
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(s store.Store, g *guard.Guard, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: s, guard: g, notifier: notifier, logger: logger}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	AccountID string
	Currency  string
}

// Create provisions a wallet for the account. Creation is idempotent: an
// account that already has a wallet gets the existing one back.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Wallet, error) {
	if input.AccountID == "" {
		return domain.Wallet{}, fmt.Errorf("%w: account id is required", domain.ErrValidation)
	}
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	if err := validateCurrency(currency); err != nil {
		return domain.Wallet{}, err
	}

	now := time.Now().UTC()
	w := domain.Wallet{
		ID:        uuid.NewString(),
		AccountID: input.AccountID,
		Currency:  currency,
		Status:    domain.WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.store.CreateWallet(ctx, w)
}

// Get retrieves the wallet aggregate by account.
func (s *Service) Get(ctx context.Context, accountID string) (domain.Wallet, error) {
	return s.store.WalletByAccount(ctx, accountID)
}

// Balance is a point-in-time view of an account's funds.
type Balance struct {
	AccountID string
	Balance   int64
	Reserved  int64
	Available int64
	Currency  string
	AsOf      time.Time
}

// GetBalance returns the account's balance breakdown.
func (s *Service) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		AccountID: w.AccountID,
		Balance:   w.Balance,
		Reserved:  w.Reserved,
		Available: w.Available(),
		Currency:  w.Currency,
		AsOf:      time.Now().UTC(),
	}, nil
}

// CreditInput captures an inbound funds posting.
type CreditInput struct {
	AccountID   string
	Amount      int64
	ReferenceID string
	Description string
}

// Credit increases the balance directly and writes the CREDIT ledger entry
// in the same atomic unit. A repeated referenceID is a no-op returning the
// original entry.
func (s *Service) Credit(ctx context.Context, input CreditInput) (domain.LedgerEntry, error) {
	if input.Amount <= 0 {
		return domain.LedgerEntry{}, fmt.Errorf("%w: credit amount must be positive", domain.ErrValidation)
	}
	if input.ReferenceID == "" {
		return domain.LedgerEntry{}, fmt.Errorf("%w: reference id is required", domain.ErrValidation)
	}

	w, err := s.store.WalletByAccount(ctx, input.AccountID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	var entry domain.LedgerEntry
	err = s.guard.Mutate(ctx, w.ID, func(current domain.Wallet) (store.Change, error) {
		if prior, err := s.store.EntryByReference(ctx, current.ID, input.ReferenceID, domain.EntryCredit); err == nil {
			entry = prior
			return store.Change{}, errReplayed
		} else if !errors.Is(err, domain.ErrEntryNotFound) {
			return store.Change{}, err
		}

		if err := current.Credit(input.Amount); err != nil {
			return store.Change{}, err
		}
		entry = domain.LedgerEntry{
			ID:           uuid.NewString(),
			WalletID:     current.ID,
			ReferenceID:  input.ReferenceID,
			Type:         domain.EntryCredit,
			Amount:       input.Amount,
			BalanceAfter: current.Balance,
			Description:  input.Description,
			CreatedAt:    time.Now().UTC(),
		}
		return store.Change{Wallet: current, Entry: &entry}, nil
	})
	if errors.Is(err, errReplayed) {
		return entry, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindCredited,
		AccountID:   w.AccountID,
		WalletID:    w.ID,
		ReferenceID: input.ReferenceID,
		Amount:      input.Amount,
	})
	return entry, nil
}

// Freeze suspends all reserve activity on the wallet.
func (s *Service) Freeze(ctx context.Context, accountID string) error {
	return s.setStatus(ctx, accountID, domain.WalletFrozen)
}

// Unfreeze reactivates a frozen wallet.
func (s *Service) Unfreeze(ctx context.Context, accountID string) error {
	return s.setStatus(ctx, accountID, domain.WalletActive)
}

// Close permanently closes the wallet; only allowed once it holds no funds.
func (s *Service) Close(ctx context.Context, accountID string) error {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	err = s.guard.Mutate(ctx, w.ID, func(current domain.Wallet) (store.Change, error) {
		if current.Status == domain.WalletClosed {
			return store.Change{}, errReplayed
		}
		if err := current.Close(); err != nil {
			return store.Change{}, err
		}
		return store.Change{Wallet: current}, nil
	})
	if errors.Is(err, errReplayed) {
		return nil
	}
	return err
}

func (s *Service) setStatus(ctx context.Context, accountID, status string) error {
	w, err := s.store.WalletByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	err = s.guard.Mutate(ctx, w.ID, func(current domain.Wallet) (store.Change, error) {
		if current.Status == domain.WalletClosed {
			return store.Change{}, domain.ErrWalletNotActive
		}
		if current.Status == status {
			return store.Change{}, errReplayed
		}
		current.Status = status
		return store.Change{Wallet: current}, nil
	})
	if errors.Is(err, errReplayed) {
		return nil
	}
	return err
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed", "kind", msg.Kind, "error", err)
	}
}

func validateCurrency(currency string) error {
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrValidation)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: currency must be uppercase letters", domain.ErrValidation)
		}
	}
	return nil
}
