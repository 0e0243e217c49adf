package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mandat-pay/mandat_pay/internal/allowance"
)

// RegisterAllowanceRoutes wires the allowance ledger endpoints. Mutations run
// behind the write limiter; reads are unthrottled.
func RegisterAllowanceRoutes(r fiber.Router, h *allowance.Handler, writeLimiter fiber.Handler) {
	r.Post("/allowances", writeLimiter, h.Approve)
	r.Post("/allowances/:spender/increase", writeLimiter, h.Increase)
	r.Post("/allowances/:spender/decrease", writeLimiter, h.Decrease)
	r.Post("/allowances/:owner/spend", writeLimiter, h.Spend)

	r.Get("/allowances/granted", h.Granted)
	r.Get("/allowances/received", h.Received)
	r.Get("/allowances/:owner/:spender", h.Get)
}
