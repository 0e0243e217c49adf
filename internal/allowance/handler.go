package allowance

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"
)

// Handler exposes allowance HTTP endpoints. The acting party is always taken
// from the authenticated caller: owners approve and adjust, spenders spend.
type Handler struct {
	service *Service
}

// NewHandler builds an allowance HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type approveRequest struct {
	Spender       string `json:"spender"`
	Amount        string `json:"amount"`
	PeriodSeconds int64  `json:"period_seconds"`
}

type adjustRequest struct {
	Delta         string `json:"delta"`
	PeriodSeconds int64  `json:"period_seconds"`
}

type spendRequest struct {
	Amount string `json:"amount"`
}

type entryResponse struct {
	Owner     string    `json:"owner"`
	Spender   string    `json:"spender"`
	Amount    string    `json:"amount"`
	Unlimited bool      `json:"unlimited"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		Owner:     e.Owner,
		Spender:   e.Spender,
		Amount:    e.Amount.Dec(),
		Unlimited: e.IsUnlimited(),
		ExpiresAt: e.ExpiresAt,
	}
}

// Approve replaces the caller's allowance toward the given spender.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	period, err := parsePeriod(req.PeriodSeconds)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	owner, _ := c.Locals("user_id").(string)
	entry, err := h.service.Approve(c.UserContext(), ApproveInput{
		Owner:   owner,
		Spender: req.Spender,
		Amount:  amount,
		Period:  period,
	})
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

// Spend debits the allowance granted to the caller by the owner in the path.
func (h *Handler) Spend(c *fiber.Ctx) error {
	var req spendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	spender, _ := c.Locals("user_id").(string)
	entry, err := h.service.Spend(c.UserContext(), SpendInput{
		Owner:   c.Params("owner"),
		Spender: spender,
		Amount:  amount,
	})
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(toEntryResponse(entry))
}

// Increase raises the caller's allowance toward the spender in the path.
func (h *Handler) Increase(c *fiber.Ctx) error {
	return h.adjust(c, false)
}

// Decrease lowers the caller's allowance toward the spender in the path.
func (h *Handler) Decrease(c *fiber.Ctx) error {
	return h.adjust(c, true)
}

func (h *Handler) adjust(c *fiber.Ctx, negative bool) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	delta, err := parseAmount(req.Delta)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	period, err := parsePeriod(req.PeriodSeconds)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	owner, _ := c.Locals("user_id").(string)
	input := AdjustInput{
		Owner:   owner,
		Spender: c.Params("spender"),
		Delta:   delta,
		Period:  period,
	}
	var entry Entry
	if negative {
		entry, err = h.service.Decrease(c.UserContext(), input)
	} else {
		entry, err = h.service.Increase(c.UserContext(), input)
	}
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(toEntryResponse(entry))
}

// Get returns the amount and expiry for an (owner, spender) pair. Absent
// pairs read as amount 0 with the zero expiry.
func (h *Handler) Get(c *fiber.Ctx) error {
	owner := c.Params("owner")
	spender := c.Params("spender")

	amount, err := h.service.Amount(c.UserContext(), owner, spender)
	if err != nil {
		return domainError(err)
	}
	expiry, err := h.service.Expiry(c.UserContext(), owner, spender)
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":      owner,
		"spender":    spender,
		"amount":     amount.Dec(),
		"unlimited":  amount.Eq(Unlimited()),
		"expires_at": expiry,
	})
}

// Granted lists the allowances the caller has granted.
func (h *Handler) Granted(c *fiber.Ctx) error {
	owner, _ := c.Locals("user_id").(string)
	entries, err := h.service.GrantedBy(c.UserContext(), owner)
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(toListResponse(entries))
}

// Received lists the allowances granted to the caller.
func (h *Handler) Received(c *fiber.Ctx) error {
	spender, _ := c.Locals("user_id").(string)
	entries, err := h.service.GrantedTo(c.UserContext(), spender)
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(toListResponse(entries))
}

func toListResponse(entries []Entry) fiber.Map {
	list := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		list = append(list, toEntryResponse(e))
	}
	return fiber.Map{"allowances": list}
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("amount is required")
	}
	return uint256.FromDecimal(s)
}

func parsePeriod(seconds int64) (time.Duration, error) {
	if seconds < 0 {
		return 0, errors.New("period_seconds must not be negative")
	}
	return time.Duration(seconds) * time.Second, nil
}

func domainError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidParty), errors.Is(err, ErrUnderflow), errors.Is(err, ErrOverflow):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrExpired):
		return fiber.NewError(http.StatusConflict, "allowance expired")
	case errors.Is(err, ErrInsufficientAllowance):
		return fiber.NewError(http.StatusConflict, "insufficient allowance")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
