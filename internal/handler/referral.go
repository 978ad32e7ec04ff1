package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sarvcast/coinsvc/internal/middleware"
)

type ApplyReferralRequest struct {
	Code string `json:"code"`
}

// ApplyReferralCode registers the authenticated user as referred by the
// owner of the code. Coins are credited when the referral completes.
func (h *Handler) ApplyReferralCode(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	var req ApplyReferralRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "referral code is required",
			"code":  "bad_request",
		})
	}

	referral, err := h.earningSvc.ApplyReferralCode(c.Context(), userID, req.Code)
	if err != nil {
		return domainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"referral": referral,
	})
}

// GetReferralStats returns the authenticated user's referral totals.
func (h *Handler) GetReferralStats(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	stats, err := h.earningSvc.GetReferralStats(c.Context(), userID)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(stats)
}
