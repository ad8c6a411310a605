package reservation

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

// TTL policy bounds. The default applies when the caller omits a TTL.
const (
	MinTTL     = time.Second
	MaxTTL     = 24 * time.Hour
	DefaultTTL = 15 * time.Minute
)

// errReplayed signals inside a mutation closure that the operation already
// happened and its original outcome should be returned unchanged.
var errReplayed = errors.New("operation already applied")

// Manager implements the two-phase reserve -> commit/release protocol on
// top of the wallet store and ledger log. All mutations run through the
// consistency guard, so retried version conflicts and idempotent replays
// are handled uniformly.
type Manager struct {
	store      store.Store
	guard      *guard.Guard
	notifier   notification.Notifier
	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewManager builds a reservation manager. A zero defaultTTL selects the
// package default.
func NewManager(s store.Store, g *guard.Guard, notifier notification.Notifier, defaultTTL time.Duration, logger *slog.Logger) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Manager{store: s, guard: g, notifier: notifier, defaultTTL: defaultTTL, logger: logger}
}

// ReserveInput captures a request to hold funds. Currency is optional; when
// set it must match the wallet's currency, since conversion is out of scope.
type ReserveInput struct {
	AccountID   string
	Amount      int64
	Currency    string
	ReferenceID string
	TTL         time.Duration
}

// Reserve places a provisional hold on the account's available balance.
// Calling again with the same referenceID returns the original reservation
// without holding funds twice; callers retrying after a timeout rely on
// this.
func (m *Manager) Reserve(ctx context.Context, input ReserveInput) (domain.Reservation, error) {
	if input.Amount <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: reserve amount must be positive", domain.ErrValidation)
	}
	if input.ReferenceID == "" {
		return domain.Reservation{}, fmt.Errorf("%w: reference id is required", domain.ErrValidation)
	}
	ttl := input.TTL
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if ttl < MinTTL || ttl > MaxTTL {
		return domain.Reservation{}, fmt.Errorf("%w: ttl must be between %s and %s", domain.ErrValidation, MinTTL, MaxTTL)
	}

	w, err := m.store.WalletByAccount(ctx, input.AccountID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if input.Currency != "" && input.Currency != w.Currency {
		return domain.Reservation{}, fmt.Errorf("%w: wallet holds %s, not %s", domain.ErrValidation, w.Currency, input.Currency)
	}

	var result domain.Reservation
	err = m.guard.Mutate(ctx, w.ID, func(current domain.Wallet) (store.Change, error) {
		if existing, err := m.store.ReservationByReference(ctx, current.ID, input.ReferenceID); err == nil {
			result = existing
			return store.Change{}, errReplayed
		} else if !errors.Is(err, domain.ErrReservationNotFound) {
			return store.Change{}, err
		}

		if err := current.Hold(input.Amount); err != nil {
			return store.Change{}, err
		}
		now := time.Now().UTC()
		result = domain.Reservation{
			ID:          uuid.NewString(),
			WalletID:    current.ID,
			ReferenceID: input.ReferenceID,
			Amount:      input.Amount,
			Status:      domain.ReservationReserved,
			CreatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		return store.Change{Wallet: current, Reservation: &result}, nil
	})
	if errors.Is(err, errReplayed) {
		return result, nil
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Commit finalizes a hold: the amount leaves the balance and a DEBIT ledger
// entry documents it. Committing an already committed reservation returns
// the prior ledger entry.
func (m *Manager) Commit(ctx context.Context, reservationID string) (domain.LedgerEntry, error) {
	r, err := m.store.ReservationByID(ctx, reservationID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	var entry domain.LedgerEntry
	err = m.guard.Mutate(ctx, r.WalletID, func(current domain.Wallet) (store.Change, error) {
		res, err := m.store.ReservationByID(ctx, reservationID)
		if err != nil {
			return store.Change{}, err
		}
		if res.Status == domain.ReservationCommitted {
			prior, err := m.store.EntryByReference(ctx, current.ID, res.ReferenceID, domain.EntryDebit)
			if err != nil {
				return store.Change{}, err
			}
			entry = prior
			return store.Change{}, errReplayed
		}
		if err := res.MarkCommitted(); err != nil {
			return store.Change{}, err
		}
		if err := current.CommitHold(res.Amount); err != nil {
			return store.Change{}, err
		}
		entry = domain.LedgerEntry{
			ID:           uuid.NewString(),
			WalletID:     current.ID,
			ReferenceID:  res.ReferenceID,
			Type:         domain.EntryDebit,
			Amount:       res.Amount,
			BalanceAfter: current.Balance,
			CreatedAt:    time.Now().UTC(),
		}
		return store.Change{Wallet: current, Reservation: &res, Entry: &entry}, nil
	})
	if errors.Is(err, errReplayed) {
		return entry, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	m.notify(ctx, notification.Message{
		Kind:        notification.KindCommitted,
		WalletID:    r.WalletID,
		ReferenceID: r.ReferenceID,
		Amount:      r.Amount,
	})
	return entry, nil
}

// Release cancels a hold, restoring availability without moving money; no
// ledger entry is written. Releasing an already released reservation is a
// no-op success. Expired reservations may still be released.
func (m *Manager) Release(ctx context.Context, reservationID string) error {
	r, err := m.store.ReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	err = m.guard.Mutate(ctx, r.WalletID, func(current domain.Wallet) (store.Change, error) {
		res, err := m.store.ReservationByID(ctx, reservationID)
		if err != nil {
			return store.Change{}, err
		}
		if res.Status == domain.ReservationReleased {
			return store.Change{}, errReplayed
		}
		if err := res.MarkReleased(); err != nil {
			return store.Change{}, err
		}
		if err := current.ReleaseHold(res.Amount); err != nil {
			return store.Change{}, err
		}
		return store.Change{Wallet: current, Reservation: &res}, nil
	})
	if errors.Is(err, errReplayed) {
		return nil
	}
	if err != nil {
		return err
	}

	m.notify(ctx, notification.Message{
		Kind:        notification.KindReleased,
		WalletID:    r.WalletID,
		ReferenceID: r.ReferenceID,
		Amount:      r.Amount,
	})
	return nil
}

// ExpireStale transitions reservations past their expiry through
// EXPIRED and on to RELEASED, restoring availability for holds whose
// caller never decided. Returns how many reservations were reclaimed.
func (m *Manager) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	stale, err := m.store.ExpiredReservations(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, r := range stale {
		if err := m.expireOne(ctx, r.ID); err != nil {
			// A commit or release can race the sweep; that reservation is
			// simply no longer stale.
			if errors.Is(err, domain.ErrReservationInvalidState) {
				continue
			}
			return reclaimed, err
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (m *Manager) expireOne(ctx context.Context, reservationID string) error {
	r, err := m.store.ReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	err = m.guard.Mutate(ctx, r.WalletID, func(current domain.Wallet) (store.Change, error) {
		res, err := m.store.ReservationByID(ctx, reservationID)
		if err != nil {
			return store.Change{}, err
		}
		// A prior sweep may have marked the reservation expired and then been
		// interrupted before releasing; skip straight to the release so the
		// hold is still reclaimed.
		if res.Status == domain.ReservationExpired {
			return store.Change{}, errReplayed
		}
		if err := res.MarkExpired(); err != nil {
			return store.Change{}, err
		}
		return store.Change{Wallet: current, Reservation: &res}, nil
	})
	if err != nil && !errors.Is(err, errReplayed) {
		return err
	}
	return m.Release(ctx, reservationID)
}

func (m *Manager) notify(ctx context.Context, msg notification.Message) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, msg); err != nil {
		m.logger.Warn("notification delivery failed", "kind", msg.Kind, "error", err)
	}
}
