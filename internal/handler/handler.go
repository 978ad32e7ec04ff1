package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sarvcast/coinsvc/internal/config"
	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/service"
)

type Handler struct {
	cfg           *config.Config
	walletSvc     *service.WalletService
	earningSvc    *service.EarningService
	redemptionSvc *service.RedemptionService
	commissionSvc *service.CommissionService
	reconciler    *service.Reconciler
}

func New(
	cfg *config.Config,
	walletSvc *service.WalletService,
	earningSvc *service.EarningService,
	redemptionSvc *service.RedemptionService,
	commissionSvc *service.CommissionService,
	reconciler *service.Reconciler,
) *Handler {
	return &Handler{
		cfg:           cfg,
		walletSvc:     walletSvc,
		earningSvc:    earningSvc,
		redemptionSvc: redemptionSvc,
		commissionSvc: commissionSvc,
		reconciler:    reconciler,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// domainError maps the error taxonomy to HTTP responses with stable codes.
func domainError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidAmount), errors.Is(err, model.ErrSelfReferral):
		status = fiber.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientFunds):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, model.ErrInvalidStateTransition),
		errors.Is(err, model.ErrDuplicateAward),
		errors.Is(err, model.ErrReferralExists),
		errors.Is(err, model.ErrConcurrencyConflict):
		status = fiber.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		status = fiber.StatusNotFound
	}

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal error"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  model.ErrorCode(err),
	})
}
