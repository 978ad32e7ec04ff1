package handler

import (
	"github.com/gofiber/fiber/v2"
)

// Internal endpoints are called service-to-service by the main SarvCast
// backend and by cron; they are not exposed to end users.

type QuizAwardRequest struct {
	UserID       int64 `json:"user_id"`
	EpisodeID    int64 `json:"episode_id"`
	CorrectCount int   `json:"correct_count"`
}

// QuizAward credits coins for a graded quiz submission. Re-delivery of the
// same submission is a no-op.
func (h *Handler) QuizAward(c *fiber.Ctx) error {
	var req QuizAwardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"code":  "bad_request",
		})
	}
	if req.UserID == 0 || req.EpisodeID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and episode_id are required",
			"code":  "bad_request",
		})
	}

	entry, err := h.earningSvc.AwardForQuiz(c.Context(), req.UserID, req.EpisodeID, req.CorrectCount)
	if err != nil {
		return domainError(c, err)
	}

	if entry == nil {
		// Already credited, or the daily cap is exhausted.
		return c.JSON(fiber.Map{
			"awarded": false,
			"coins":   0,
		})
	}

	return c.JSON(fiber.Map{
		"awarded":     true,
		"coins":       entry.Amount,
		"transaction": entry,
	})
}

type ReferralCompleteRequest struct {
	ReferredID int64 `json:"referred_id"`
}

// ReferralComplete fires when a referred user qualifies; it credits both
// sides of the referral. Idempotent under re-delivery.
func (h *Handler) ReferralComplete(c *fiber.Ctx) error {
	var req ReferralCompleteRequest
	if err := c.BodyParser(&req); err != nil || req.ReferredID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "referred_id is required",
			"code":  "bad_request",
		})
	}

	entries, err := h.earningSvc.CompleteReferral(c.Context(), req.ReferredID)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"credited": len(entries),
		"entries":  entries,
	})
}

// CronReconcile runs a reconciliation pass on demand.
func (h *Handler) CronReconcile(c *fiber.Ctx) error {
	mismatches, err := h.reconciler.RunOnce(c.Context())
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":     "ok",
		"mismatches": mismatches,
	})
}
