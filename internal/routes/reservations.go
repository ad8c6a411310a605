package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_core/internal/reservation"
)

// RegisterReservationRoutes wires the two-phase reserve/commit/release endpoints.
func RegisterReservationRoutes(r fiber.Router, h *reservation.Handler, rateLimit fiber.Handler) {
	r.Post("/reservations", rateLimit, h.Reserve)
	r.Post("/reservations/:reservationId/commit", h.Commit)
	r.Post("/reservations/:reservationId/release", h.Release)
}
