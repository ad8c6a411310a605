package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_core/internal/domain"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
}

type walletResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Balance   int64  `json:"balance"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
	Version   int64  `json:"version"`
}

func toResponse(w domain.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		AccountID: w.AccountID,
		Currency:  w.Currency,
		Status:    w.Status,
		Balance:   w.Balance,
		Reserved:  w.Reserved,
		Available: w.Available(),
		Version:   w.Version,
	}
}

// Create provisions a wallet for the account; repeated calls return the
// existing wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{AccountID: req.AccountID, Currency: req.Currency})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Balance returns the account's balance breakdown.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.GetBalance(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": balance.AccountID,
		"balance":    balance.Balance,
		"reserved":   balance.Reserved,
		"available":  balance.Available,
		"currency":   balance.Currency,
		"timestamp":  balance.AsOf.Format(time.RFC3339Nano),
	})
}

type creditRequest struct {
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id"`
	Description string `json:"description"`
}

// Credit posts inbound funds to the account.
func (h *Handler) Credit(c *fiber.Ctx) error {
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.Credit(c.UserContext(), CreditInput{
		AccountID:   c.Params("accountId"),
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"ledger_entry_id": entry.ID,
		"balance_after":   entry.BalanceAfter,
	})
}

// Freeze suspends reserve activity on the wallet.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	if err := h.service.Freeze(c.UserContext(), c.Params("accountId")); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unfreeze reactivates a frozen wallet.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	if err := h.service.Unfreeze(c.UserContext(), c.Params("accountId")); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Close closes an empty wallet.
func (h *Handler) Close(c *fiber.Ctx) error {
	if err := h.service.Close(c.UserContext(), c.Params("accountId")); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWalletNotActive), errors.Is(err, domain.ErrWalletNotEmpty):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
