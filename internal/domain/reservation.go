package domain

import (
	"fmt"
	"time"
)

// Reservation statuses. Committed and Released are terminal; Expired is an
// intermediate state the sweep moves through on its way to Released.
const (
	ReservationReserved  = "reserved"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
	ReservationExpired   = "expired"
)

// Reservation is a provisional, revocable hold on part of a wallet's
// available balance. ReferenceID is the caller-supplied idempotency key,
// unique per wallet.
type Reservation struct {
	ID          string
	WalletID    string
	ReferenceID string
	Amount      int64
	Status      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// MarkCommitted finalizes the hold. Only a live reservation may commit.
func (r *Reservation) MarkCommitted() error {
	if r.Status != ReservationReserved {
		return fmt.Errorf("%w: cannot commit from %s", ErrReservationInvalidState, r.Status)
	}
	r.Status = ReservationCommitted
	return nil
}

// MarkExpired is used only by the sweep when expiresAt has passed.
func (r *Reservation) MarkExpired() error {
	if r.Status != ReservationReserved {
		return fmt.Errorf("%w: cannot expire from %s", ErrReservationInvalidState, r.Status)
	}
	r.Status = ReservationExpired
	return nil
}

// MarkReleased cancels the hold. Valid from Reserved or Expired.
func (r *Reservation) MarkReleased() error {
	if r.Status != ReservationReserved && r.Status != ReservationExpired {
		return fmt.Errorf("%w: cannot release from %s", ErrReservationInvalidState, r.Status)
	}
	r.Status = ReservationReleased
	return nil
}
