package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
)

func testClient(webhookSecret string) *Client {
	return &Client{webhookSecret: webhookSecret, log: logger.NewLogger()}
}

func TestVerifyWebhookSignatureRequiresSecret(t *testing.T) {
	c := testClient("")

	_, err := c.VerifyWebhookSignature([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestVerifyWebhookSignatureRejectsBadSignature(t *testing.T) {
	c := testClient("whsec_test")

	_, err := c.VerifyWebhookSignature([]byte(`{}`), "t=1,v1=not-a-real-signature")
	assert.Error(t, err)
}

func TestResultFromEventIgnoresNonIntentEvents(t *testing.T) {
	c := testClient("whsec_test")

	_, err := c.ResultFromEvent(stripe.Event{Type: "charge.refunded"})
	assert.ErrorIs(t, err, ErrNotAnIntentEvent)
}

func TestResultFromEventClassifiesIntent(t *testing.T) {
	c := testClient("whsec_test")

	raw, err := json.Marshal(map[string]any{
		"id":     "pi_123",
		"status": "succeeded",
	})
	require.NoError(t, err)

	res, err := c.ResultFromEvent(stripe.Event{
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, res.Status)
	assert.Equal(t, "pi_123", res.Reference)
}

func TestResultFromEventRejectsMalformedPayload(t *testing.T) {
	c := testClient("whsec_test")

	_, err := c.ResultFromEvent(stripe.Event{
		Type: "payment_intent.payment_failed",
		Data: &stripe.EventData{Raw: json.RawMessage(`not json`)},
	})
	assert.Error(t, err)
}
