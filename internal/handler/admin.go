package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/repository"
)

// Admin surface: redemption and commission workflow actions, manual ledger
// adjustments, and the reconciliation report.

func (h *Handler) AdminListRedemptions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	userID, _ := strconv.ParseInt(c.Query("user_id", "0"), 10, 64)

	filter := repository.RedemptionFilter{
		UserID: userID,
		Status: model.RedemptionStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}

	redemptions, err := h.redemptionSvc.ListRedemptions(c.Context(), filter)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"redemptions": redemptions,
	})
}

type AdminRedemptionActionRequest struct {
	PaymentReference string `json:"payment_reference"`
	TrackingNumber   string `json:"tracking_number"`
	AdminNotes       string `json:"admin_notes"`
}

func (h *Handler) AdminProcessRedemption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid redemption id",
			"code":  "bad_request",
		})
	}

	var req AdminRedemptionActionRequest
	_ = c.BodyParser(&req)

	redemption, err := h.redemptionSvc.MarkProcessing(c.Context(), id, req.AdminNotes)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"redemption": redemption})
}

func (h *Handler) AdminCompleteRedemption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid redemption id",
			"code":  "bad_request",
		})
	}

	var req AdminRedemptionActionRequest
	_ = c.BodyParser(&req)

	redemption, err := h.redemptionSvc.Complete(c.Context(), id, req.PaymentReference, req.TrackingNumber)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"redemption": redemption})
}

func (h *Handler) AdminFailRedemption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid redemption id",
			"code":  "bad_request",
		})
	}

	var req AdminRedemptionActionRequest
	_ = c.BodyParser(&req)

	redemption, err := h.redemptionSvc.MarkFailed(c.Context(), id, req.AdminNotes)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"redemption": redemption})
}

func (h *Handler) AdminCancelRedemption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid redemption id",
			"code":  "bad_request",
		})
	}

	var req AdminRedemptionActionRequest
	_ = c.BodyParser(&req)

	redemption, err := h.redemptionSvc.AdminCancel(c.Context(), id, req.AdminNotes)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"redemption": redemption})
}

type AdminAdjustRequest struct {
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// AdminAdjust applies a manual balance correction through the ledger.
func (h *Handler) AdminAdjust(c *fiber.Ctx) error {
	var req AdminAdjustRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and amount are required",
			"code":  "bad_request",
		})
	}

	entry, err := h.walletSvc.Adjust(c.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"transaction": entry})
}

type AdminBonusRequest struct {
	UserID      int64  `json:"user_id"`
	Coins       int64  `json:"coins"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

// AdminAwardBonus grants campaign coins; the reference keeps it idempotent.
func (h *Handler) AdminAwardBonus(c *fiber.Ctx) error {
	var req AdminBonusRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 || req.Reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id, coins and reference are required",
			"code":  "bad_request",
		})
	}

	entry, err := h.earningSvc.AwardBonus(c.Context(), req.UserID, req.Coins, req.Reference, req.Description)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"transaction": entry})
}

// ----- Commission payments -----

func (h *Handler) AdminListCommissions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	partnerID, _ := strconv.ParseInt(c.Query("partner_id", "0"), 10, 64)

	filter := repository.CommissionFilter{
		PartnerID: partnerID,
		Status:    model.CommissionStatus(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	}

	payments, err := h.commissionSvc.List(c.Context(), filter)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"commission_payments": payments})
}

type CreateCommissionRequest struct {
	PartnerID   int64  `json:"partner_id"`
	Amount      int64  `json:"amount"`
	PaymentType string `json:"payment_type"`
	Notes       string `json:"notes"`
}

func (h *Handler) AdminCreateCommission(c *fiber.Ctx) error {
	var req CreateCommissionRequest
	if err := c.BodyParser(&req); err != nil || req.PartnerID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "partner_id and amount are required",
			"code":  "bad_request",
		})
	}

	payment, err := h.commissionSvc.Create(c.Context(), req.PartnerID, req.Amount, model.CommissionType(req.PaymentType), req.Notes)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"commission_payment": payment})
}

type CommissionActionRequest struct {
	PaymentReference string `json:"payment_reference"`
	Notes            string `json:"notes"`
}

func (h *Handler) AdminProcessCommission(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid commission payment id",
			"code":  "bad_request",
		})
	}

	payment, err := h.commissionSvc.Process(c.Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"commission_payment": payment})
}

func (h *Handler) AdminMarkCommissionPaid(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid commission payment id",
			"code":  "bad_request",
		})
	}

	var req CommissionActionRequest
	_ = c.BodyParser(&req)

	payment, err := h.commissionSvc.MarkPaid(c.Context(), id, req.PaymentReference)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"commission_payment": payment})
}

func (h *Handler) AdminMarkCommissionFailed(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid commission payment id",
			"code":  "bad_request",
		})
	}

	var req CommissionActionRequest
	_ = c.BodyParser(&req)

	payment, err := h.commissionSvc.MarkFailed(c.Context(), id, req.Notes)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"commission_payment": payment})
}

type BulkCommissionRequest struct {
	IDs              []string `json:"ids"`
	Action           string   `json:"action"` // process | mark-paid | mark-failed
	PaymentReference string   `json:"payment_reference"`
}

// AdminBulkCommissions applies a workflow action to many payments. Partial
// failure is expected; the response carries a result per id.
func (h *Handler) AdminBulkCommissions(c *fiber.Ctx) error {
	var req BulkCommissionRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids and action are required",
			"code":  "bad_request",
		})
	}

	var to model.CommissionStatus
	switch req.Action {
	case "process":
		to = model.CommissionStatusProcessing
	case "mark-paid":
		to = model.CommissionStatusPaid
	case "mark-failed":
		to = model.CommissionStatusFailed
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action must be process, mark-paid or mark-failed",
			"code":  "bad_request",
		})
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid commission payment id: " + raw,
				"code":  "bad_request",
			})
		}
		ids = append(ids, id)
	}

	results := h.commissionSvc.BulkTransition(c.Context(), ids, to, req.PaymentReference)
	return c.JSON(fiber.Map{"results": results})
}

// AdminReconcileReport runs a reconciliation pass and returns any drift.
func (h *Handler) AdminReconcileReport(c *fiber.Ctx) error {
	mismatches, err := h.reconciler.RunOnce(c.Context())
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{
		"mismatches": mismatches,
		"clean":      len(mismatches) == 0,
	})
}
