// Package guard wraps every wallet mutation with invariant validation and a
// bounded retry policy for optimistic-lock conflicts.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/congo-pay/wallet_core/internal/domain"
	"github.com/congo-pay/wallet_core/internal/store"
)

const (
	// DefaultAttempts bounds how often a version conflict is retried before
	// it surfaces as domain.ErrConcurrencyConflict.
	DefaultAttempts = 5
	// DefaultBackoff is the base delay before the first retry; subsequent
	// retries double it with jitter.
	DefaultBackoff = 10 * time.Millisecond
)

// Guard validates and applies wallet changes. All reserve/commit/release/
// credit paths go through Mutate, so every write is invariant-checked and
// conflict-retried in one place.
type Guard struct {
	store    store.Store
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// New constructs a guard over the store. Zero attempts/backoff select the
// defaults.
func New(s store.Store, attempts int, backoff time.Duration, logger *slog.Logger) *Guard {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Guard{store: s, attempts: attempts, backoff: backoff, logger: logger}
}

// Mutate reads the current wallet state, lets fn derive a change from it,
// validates the resulting wallet invariants and applies the change
// atomically. On a version conflict the whole read-derive-apply cycle is
// repeated, so fn must be pure apart from reads and may run multiple times.
// Every other error from fn or the store surfaces unchanged and immediately.
func (g *Guard) Mutate(ctx context.Context, walletID string, fn func(domain.Wallet) (store.Change, error)) error {
	for attempt := 1; ; attempt++ {
		w, err := g.store.WalletByID(ctx, walletID)
		if err != nil {
			return err
		}

		change, err := fn(w)
		if err != nil {
			return err
		}

		if err := change.Wallet.CheckInvariants(); err != nil {
			// Programming-error class: never retried, loudly logged.
			g.logger.Error("wallet invariant violated",
				slog.String("wallet_id", walletID),
				slog.Int64("balance", change.Wallet.Balance),
				slog.Int64("reserved", change.Wallet.Reserved),
				slog.Any("error", err))
			return err
		}

		err = g.store.Apply(ctx, change)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= g.attempts {
			g.logger.Warn("wallet mutation retries exhausted",
				slog.String("wallet_id", walletID),
				slog.Int("attempts", attempt))
			return domain.ErrConcurrencyConflict
		}

		if err := sleep(ctx, jitter(g.backoff, attempt)); err != nil {
			return err
		}
	}
}

// jitter doubles the base delay per attempt and randomizes within the step
// to spread out contending writers.
func jitter(base time.Duration, attempt int) time.Duration {
	step := base << (attempt - 1)
	return step/2 + time.Duration(rand.Int63n(int64(step)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
