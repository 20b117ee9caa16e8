package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"charge-gateway/internal/config"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
)

var (
	ErrClientInitFailed = errors.New("failed to initialize processor client")
)

// GatewayError wraps any non-2xx processor response. DeclineCode is set when
// the processor rejected the charge itself rather than the request.
type GatewayError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"declineCode,omitempty"`
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
}

func (e *GatewayError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("processor error %s (decline: %s): %s", e.Code, e.DeclineCode, e.Message)
	}
	return fmt.Sprintf("processor error %s: %s", e.Code, e.Message)
}

// ClientFault reports whether the processor classified the failure as caused
// by the request (declines, invalid parameters) rather than by the processor
// or the network.
func (e *GatewayError) ClientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client is a thin adapter over the processor API. One network call per
// operation, no local retries: the idempotency key supplied with each create
// makes retries safe at the edge, not here.
type Client struct {
	api           *client.API
	webhookSecret string
	log           *logger.Logger
}

// NewClient builds the processor client with a dedicated HTTP client so every
// call carries the configured timeout.
func NewClient(cfg config.StripeConfig, log *logger.Logger) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, config.ErrMissingStripeKey
	}

	backends := stripe.NewBackends(&http.Client{Timeout: cfg.Timeout})
	api := client.New(cfg.SecretKey, backends)
	if api == nil {
		return nil, ErrClientInitFailed
	}

	log.Info("STRIPE", fmt.Sprintf("Processor client initialized with %s call timeout", cfg.Timeout))
	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}, nil
}

// CreateIntent creates a payment intent for the normalized request. The
// payment method, if any, is attached at confirmation time.
func (c *Client) CreateIntent(ctx context.Context, req *models.ProcessorRequest) (*models.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Metadata:           req.Metadata,
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	c.log.LogPayment("CREATE_INTENT", "new", fmt.Sprintf("Creating intent for %d %s", req.AmountMinor, req.Currency))
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, c.wrapErr("create intent", err)
	}

	c.log.LogPayment("CREATE_INTENT", pi.ID, fmt.Sprintf("Intent created with status %s", pi.Status))
	return resultFromIntent(pi), nil
}

// ConfirmIntent attaches the payment method reference and confirms the
// intent. returnURL may be empty when no challenge redirect is expected.
func (c *Client) ConfirmIntent(ctx context.Context, intentID, paymentMethodRef, returnURL string) (*models.ChargeResult, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodRef),
	}
	params.Context = ctx
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}

	c.log.LogPayment("CONFIRM", intentID, "Confirming intent")
	pi, err := c.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, c.wrapErr("confirm intent", err)
	}

	c.log.LogPayment("CONFIRM", pi.ID, fmt.Sprintf("Intent confirmed with status %s", pi.Status))
	return resultFromIntent(pi), nil
}

// RetrieveIntent fetches the current state of an intent.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*models.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, c.wrapErr("retrieve intent", err)
	}
	return resultFromIntent(pi), nil
}

// CreatePaymentMethod tokenizes raw card fields server-side and returns the
// payment method reference. Card fields are not logged.
func (c *Client) CreatePaymentMethod(ctx context.Context, card *models.CardDetails, addr *models.Address) (string, error) {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(int64(card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(card.ExpYear)),
			CVC:      stripe.String(card.CVC),
		},
	}
	params.Context = ctx
	if addr != nil {
		params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{
			Address: &stripe.AddressParams{
				Line1:      stripe.String(addr.Line1),
				Line2:      stripe.String(addr.Line2),
				City:       stripe.String(addr.City),
				State:      stripe.String(addr.State),
				PostalCode: stripe.String(addr.PostalCode),
				Country:    stripe.String(addr.Country),
			},
		}
	}

	pm, err := c.api.PaymentMethods.New(params)
	if err != nil {
		return "", c.wrapErr("create payment method", err)
	}

	c.log.LogPayment("TOKENIZE", pm.ID, "Payment method created from card")
	return pm.ID, nil
}

func (c *Client) wrapErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		ge := &GatewayError{
			Code:        string(stripeErr.Code),
			DeclineCode: string(stripeErr.DeclineCode),
			StatusCode:  stripeErr.HTTPStatusCode,
			Message:     stripeErr.Msg,
		}
		c.log.Warn("STRIPE", fmt.Sprintf("%s rejected: %s", op, ge.Error()))
		return ge
	}

	c.log.Error("STRIPE", fmt.Sprintf("%s failed: %v", op, err))
	return &GatewayError{
		Code:    "connection_error",
		Message: err.Error(),
	}
}

// resultFromIntent classifies the processor's status string into the
// service's charge status set. requires_confirmation and requires_capture
// are in-flight states from the caller's point of view.
func resultFromIntent(pi *stripe.PaymentIntent) *models.ChargeResult {
	res := &models.ChargeResult{
		Status:       classifyStatus(pi.Status),
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
	}
	if pi.LastPaymentError != nil {
		res.DeclineCode = string(pi.LastPaymentError.DeclineCode)
	}
	return res
}

func classifyStatus(s stripe.PaymentIntentStatus) models.ChargeStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return models.StatusSucceeded
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return models.StatusProcessing
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return models.StatusRequiresAction
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return models.StatusRequiresPaymentMethod
	default:
		return models.StatusFailed
	}
}
