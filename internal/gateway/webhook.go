package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"charge-gateway/internal/models"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook secret is not configured")
	ErrNotAnIntentEvent     = errors.New("event does not carry a payment intent")
)

// VerifyWebhookSignature delegates signature verification to the processor's
// SDK and returns the decoded event.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if c.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		c.log.LogSecurity("WEBHOOK_SIGNATURE", fmt.Sprintf("Rejected webhook payload: %v", err))
		return stripe.Event{}, err
	}
	return event, nil
}

// ResultFromEvent extracts the intent carried by a payment_intent.* event and
// classifies it like any other processor response.
func (c *Client) ResultFromEvent(event stripe.Event) (*models.ChargeResult, error) {
	if !strings.HasPrefix(string(event.Type), "payment_intent.") {
		return nil, ErrNotAnIntentEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode intent from event: %w", err)
	}
	return resultFromIntent(&pi), nil
}
