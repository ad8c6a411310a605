package domain

import (
	"errors"
	"testing"
)

func TestReservationLifecycle(t *testing.T) {
	r := Reservation{ID: "r1", Status: ReservationReserved}
	if err := r.MarkCommitted(); err != nil {
		t.Fatalf("commit from reserved failed: %v", err)
	}
	if err := r.MarkReleased(); !errors.Is(err, ErrReservationInvalidState) {
		t.Fatalf("release out of committed must fail, got %v", err)
	}
	if err := r.MarkCommitted(); !errors.Is(err, ErrReservationInvalidState) {
		t.Fatalf("double commit must fail, got %v", err)
	}
}

func TestReservationExpiryPath(t *testing.T) {
	r := Reservation{ID: "r1", Status: ReservationReserved}
	if err := r.MarkExpired(); err != nil {
		t.Fatalf("expire from reserved failed: %v", err)
	}
	if err := r.MarkCommitted(); !errors.Is(err, ErrReservationInvalidState) {
		t.Fatalf("commit out of expired must fail, got %v", err)
	}
	if err := r.MarkReleased(); err != nil {
		t.Fatalf("release from expired failed: %v", err)
	}
	if r.Status != ReservationReleased {
		t.Fatalf("expected released, got %s", r.Status)
	}
	if err := r.MarkExpired(); !errors.Is(err, ErrReservationInvalidState) {
		t.Fatalf("expire out of released must fail, got %v", err)
	}
}
