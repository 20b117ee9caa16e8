package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"charge-gateway/internal/gateway"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
	"charge-gateway/internal/respond"
	"charge-gateway/internal/services"
	"charge-gateway/internal/validation"
)

// ChargeHandler binds the validate → normalize → forward → map pipeline to
// the charge endpoints. All transport concerns live here; the components it
// composes are pure or single-purpose.
type ChargeHandler struct {
	validator *validation.Validator
	service   *services.ChargeService
	log       *logger.Logger
	debug     bool
}

func NewChargeHandler(validator *validation.Validator, service *services.ChargeService, log *logger.Logger, debug bool) *ChargeHandler {
	return &ChargeHandler{
		validator: validator,
		service:   service,
		log:       log,
		debug:     debug,
	}
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (h *ChargeHandler) CreatePaymentIntent(c *gin.Context) {
	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, respond.Error("invalid request payload", err.Error(), "invalid_payload"))
		return
	}

	chargeReq, errs := h.validator.ValidateCreate(validation.CreateInput{
		Amount:         req.Amount.String(),
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if len(errs) > 0 {
		c.JSON(respond.ValidationFailed(errs))
		return
	}

	res, err := h.service.CreateIntent(c.Request.Context(), chargeReq)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CreateIntentResponse{
		Success:         true,
		ClientSecret:    res.ClientSecret,
		PaymentIntentID: res.Reference,
	})
}

// ConfirmPayment handles POST /confirm-payment and its
// /confirm-payment-intent variant.
func (h *ChargeHandler) ConfirmPayment(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, respond.Error("invalid request payload", err.Error(), "invalid_payload"))
		return
	}
	if req.PaymentIntentID == "" {
		c.JSON(http.StatusBadRequest, respond.Error("paymentIntentId is required", "", "invalid_payload"))
		return
	}

	chargeReq, errs := h.validator.ValidateConfirm(validation.ConfirmInput{
		PaymentMethodID: req.PaymentMethodID,
		CardNumber:      req.CardNumber,
		Expiry:          req.Expiry,
		ExpMonth:        req.ExpMonth,
		ExpYear:         req.ExpYear,
		CVC:             req.CVC,
		PIN:             req.PIN,
		BillingAddress:  req.BillingAddress,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if len(errs) > 0 {
		c.JSON(respond.ValidationFailed(errs))
		return
	}

	res, err := h.service.ConfirmIntent(c.Request.Context(), req.PaymentIntentID, chargeReq, req.ReturnURL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(respond.Result(res))
}

// GetPaymentIntent handles GET /payment-intent/:id.
func (h *ChargeHandler) GetPaymentIntent(c *gin.Context) {
	intentID := c.Param("id")
	if intentID == "" {
		c.JSON(http.StatusBadRequest, respond.Error("payment intent id is required", "", "invalid_payload"))
		return
	}

	res, err := h.service.RetrieveIntent(c.Request.Context(), intentID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(respond.Result(res))
}

func (h *ChargeHandler) renderError(c *gin.Context, err error) {
	var ge *gateway.GatewayError
	if errors.As(err, &ge) {
		c.JSON(respond.GatewayFailure(ge))
		return
	}

	h.log.Error("HANDLER", fmt.Sprintf("Unhandled fault on %s: %v", c.FullPath(), err))
	c.JSON(respond.Internal(err, h.debug))
}
