package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mandat-pay/mandat_pay/internal/auth"
	"github.com/mandat-pay/mandat_pay/internal/config"
	"github.com/mandat-pay/mandat_pay/internal/identity"
)

// JWTAuth validates bearer tokens and checks the party's token version so
// logged-out tokens stop working.
func JWTAuth(cfg config.Config, parties identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.Verify(tokenStr, cfg.JWTSecret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)
		ver := int(verFloat)

		party, err := parties.FindByID(c.UserContext(), sub)
		if err != nil || party.TokenVersion != ver {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("user_id", sub)
		return c.Next()
	}
}
