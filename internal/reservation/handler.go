package reservation

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_core/internal/domain"
)

// Handler exposes the reserve/commit/release HTTP endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler builds a reservation HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type reserveRequest struct {
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"reference_id"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

// Reserve places a hold on the account's available balance.
func (h *Handler) Reserve(c *fiber.Ctx) error {
	var req reserveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.manager.Reserve(c.UserContext(), ReserveInput{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ReferenceID: req.ReferenceID,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"reservation_id": r.ID,
		"status":         r.Status,
		"expires_at":     r.ExpiresAt.Format(time.RFC3339Nano),
	})
}

// Commit finalizes a hold into a debit.
func (h *Handler) Commit(c *fiber.Ctx) error {
	entry, err := h.manager.Commit(c.UserContext(), c.Params("reservationId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"ledger_entry_id": entry.ID,
		"balance_after":   entry.BalanceAfter,
	})
}

// Release cancels a hold.
func (h *Handler) Release(c *fiber.Ctx) error {
	if err := h.manager.Release(c.UserContext(), c.Params("reservationId")); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrWalletNotActive), errors.Is(err, domain.ErrReservationInvalidState), errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
