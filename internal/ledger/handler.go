package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_core/internal/domain"
)

// Handler exposes ledger read endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type entryResponse struct {
	ID           string `json:"id"`
	ReferenceID  string `json:"reference_id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toEntryResponse(e domain.LedgerEntry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		ReferenceID:  e.ReferenceID,
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339Nano),
	}
}

// List returns the account's ledger entries oldest first. A reference_id
// query narrows the listing to the single matching entry; otherwise after
// and limit page through the log.
func (h *Handler) List(c *fiber.Ctx) error {
	accountID := c.Params("accountId")

	if referenceID := c.Query("reference_id"); referenceID != "" {
		entry, err := h.service.FindByReference(c.UserContext(), accountID, referenceID)
		if errors.Is(err, domain.ErrEntryNotFound) {
			return c.Status(http.StatusOK).JSON(fiber.Map{"entries": []entryResponse{}})
		}
		if err != nil {
			return fiber.NewError(listStatus(err), err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"entries": []entryResponse{toEntryResponse(entry)}})
	}

	afterSeq, err := queryInt(c, "after")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	page, err := h.service.List(c.UserContext(), accountID, afterSeq, int(limit))
	if err != nil {
		return fiber.NewError(listStatus(err), err.Error())
	}

	entries := make([]entryResponse, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"entries": entries,
		"cursor":  page.Cursor,
	})
}

// queryInt parses an optional non-negative integer query parameter; garbage
// input is rejected instead of silently read as zero.
func queryInt(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func listStatus(err error) int {
	if errors.Is(err, domain.ErrWalletNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
