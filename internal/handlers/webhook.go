package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"

	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
	"charge-gateway/internal/respond"
	"charge-gateway/internal/services"
)

// WebhookVerifier is the slice of the gateway client the webhook endpoint
// needs. Satisfied by *gateway.Client.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
	ResultFromEvent(event stripe.Event) (*models.ChargeResult, error)
}

// WebhookHandler receives signed processor callbacks. Verification is
// delegated to the processor's SDK; this handler only classifies the carried
// intent and acknowledges.
type WebhookHandler struct {
	verifier WebhookVerifier
	service  *services.ChargeService
	log      *logger.Logger
}

func NewWebhookHandler(verifier WebhookVerifier, service *services.ChargeService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		service:  service,
		log:      log,
	}
}

// HandleWebhook handles POST /webhook.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, respond.Error("failed to read request body", err.Error(), "invalid_payload"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	event, err := h.verifier.VerifyWebhookSignature(payload, signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, respond.Error("webhook signature verification failed", "", "invalid_signature"))
		return
	}

	// Events that do not carry a payment intent are acknowledged without
	// touching the attempt trail.
	if res, err := h.verifier.ResultFromEvent(event); err == nil {
		h.log.LogPayment("WEBHOOK", res.Reference, fmt.Sprintf("Processor reported status %s", res.Status))
		h.service.RecordResult(c.Request.Context(), res)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
