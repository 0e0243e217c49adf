package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mandat-pay/mandat_pay/internal/identity"
)

// RegisterIdentityRoutes wires party registration.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Phone string `json:"phone"`
			PIN   string `json:"pin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		party, err := ids.Register(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("party_id", party.ID),
				slog.String("phone", party.Phone),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"party_id": party.ID,
			"phone":    party.Phone,
		})
	})
}
