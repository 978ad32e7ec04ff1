package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sarvcast/coinsvc/internal/middleware"
	"github.com/sarvcast/coinsvc/internal/model"
)

// GetBalance returns the user's current coin balance.
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	balance, err := h.walletSvc.GetBalance(c.Context(), userID)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"balance": balance,
	})
}

// GetTransactions returns the user's ledger history, newest first.
func (h *Handler) GetTransactions(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	filter := model.EntryFilter{
		Kind:   model.EntryKind(c.Query("kind")),
		Source: model.EntrySource(c.Query("source")),
		Limit:  limit,
		Offset: offset,
	}

	entries, err := h.walletSvc.GetTransactions(c.Context(), userID, filter)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": entries,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

type SpendRequest struct {
	Amount  int64  `json:"amount"`
	ItemRef string `json:"item_ref"`
}

// Spend debits coins for an in-app purchase.
func (h *Handler) Spend(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	var req SpendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"code":  "bad_request",
		})
	}
	if req.ItemRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "item_ref is required",
			"code":  "bad_request",
		})
	}

	entry, err := h.walletSvc.Spend(c.Context(), userID, req.Amount, req.ItemRef)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"transaction": entry,
		"new_balance": entry.BalanceAfter,
	})
}

type RedeemRequest struct {
	Amount        int64           `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PayoutDetails json.RawMessage `json:"payout_details"`
}

// Redeem creates a cash-out request, debiting the coins immediately.
func (h *Handler) Redeem(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	var req RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"code":  "bad_request",
		})
	}

	redemption, err := h.redemptionSvc.CreateRedemption(c.Context(), userID, req.Amount, req.PaymentMethod, req.PayoutDetails)
	if err != nil {
		return domainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"redemption": redemption,
	})
}

// ListRedemptions returns the user's own redemption requests.
func (h *Handler) ListRedemptions(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	redemptions, err := h.redemptionSvc.ListUserRedemptions(c.Context(), userID, limit, offset)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"redemptions": redemptions,
	})
}

// CancelRedemption cancels the user's own pending request and refunds the coins.
func (h *Handler) CancelRedemption(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
			"code":  "unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid redemption id",
			"code":  "bad_request",
		})
	}

	redemption, err := h.redemptionSvc.Cancel(c.Context(), userID, id)
	if err != nil {
		return domainError(c, err)
	}

	resp := fiber.Map{
		"redemption": redemption,
	}
	// The cancel already refunded the coins; a failed balance read must not
	// fail the response or report a zero balance.
	if balance, err := h.walletSvc.GetBalance(c.Context(), userID); err == nil {
		resp["new_balance"] = balance
	}

	return c.JSON(resp)
}
