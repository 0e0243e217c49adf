package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mandat-pay/mandat_pay/internal/auth"
)

// RegisterAuthRoutes wires login and refresh endpoints behind the rate limiter.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, limiter fiber.Handler) {
	r.Post("/auth/login", limiter, h.Login)
	r.Post("/auth/refresh", limiter, h.Refresh)
}
