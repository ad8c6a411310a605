package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_core/internal/ledger"
	"github.com/congo-pay/wallet_core/internal/wallet"
)

// RegisterWalletRoutes wires wallet and ledger endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, lh *ledger.Handler, rateLimit fiber.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:accountId/balance", h.Balance)
	r.Get("/wallets/:accountId/ledger", lh.List)
	r.Post("/wallets/:accountId/credit", rateLimit, h.Credit)
	r.Post("/wallets/:accountId/freeze", h.Freeze)
	r.Post("/wallets/:accountId/unfreeze", h.Unfreeze)
	r.Post("/wallets/:accountId/close", h.Close)
}
