package respond

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge-gateway/internal/gateway"
	"charge-gateway/internal/models"
	"charge-gateway/internal/validation"
)

func TestErrorEnvelope(t *testing.T) {
	body := Error("something broke", "more detail", "some_code")
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "something broke", body["error"])
	assert.Equal(t, "more detail", body["details"])
	assert.Equal(t, "some_code", body["code"])

	// Optional fields are omitted entirely, not set to empty strings.
	minimal := Error("something broke", "", "")
	_, hasDetails := minimal["details"]
	_, hasCode := minimal["code"]
	assert.False(t, hasDetails)
	assert.False(t, hasCode)
}

func TestValidationFailed(t *testing.T) {
	errs := []validation.FieldError{
		{Field: "amount", Code: validation.CodeInvalidAmount, Message: "too small"},
		{Field: "cvc", Code: validation.CodeInvalidCVC, Message: "bad cvc"},
	}

	status, body := ValidationFailed(errs)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, errs, body["errors"])
	assert.Equal(t, []string{"amount: too small", "cvc: bad cvc"}, body["fields"])
}

func TestGatewayFailureDecline(t *testing.T) {
	status, body := GatewayFailure(&gateway.GatewayError{
		Code:        "card_declined",
		DeclineCode: "insufficient_funds",
		StatusCode:  402,
		Message:     "Your card has insufficient funds.",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "card_declined", body["code"])
	assert.Equal(t, "insufficient_funds", body["declineCode"])
}

func TestGatewayFailureProcessorFault(t *testing.T) {
	status, body := GatewayFailure(&gateway.GatewayError{
		Code:       "api_error",
		StatusCode: 500,
		Message:    "processor exploded",
	})

	assert.Equal(t, http.StatusBadGateway, status)
	// Processor internals never leak to the caller.
	assert.NotContains(t, body, "details")
	assert.NotContains(t, body, "declineCode")
}

func TestResultMapping(t *testing.T) {
	tests := []struct {
		name       string
		res        *models.ChargeResult
		wantStatus int
		wantOK     bool
	}{
		{"succeeded", &models.ChargeResult{Status: models.StatusSucceeded, Reference: "pi_1"}, http.StatusOK, true},
		{"requires action", &models.ChargeResult{Status: models.StatusRequiresAction, Reference: "pi_2", ClientSecret: "pi_2_secret"}, http.StatusOK, true},
		{"processing", &models.ChargeResult{Status: models.StatusProcessing, Reference: "pi_3"}, http.StatusOK, true},
		{"requires payment method", &models.ChargeResult{Status: models.StatusRequiresPaymentMethod, Reference: "pi_4"}, http.StatusBadRequest, false},
		{"failed", &models.ChargeResult{Status: models.StatusFailed, Reference: "pi_5"}, http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Result(tc.res)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantOK, body["success"])
			assert.Equal(t, tc.res.Reference, body["reference"])
		})
	}
}

func TestResultRequiresActionCarriesClientSecret(t *testing.T) {
	_, body := Result(&models.ChargeResult{
		Status:       models.StatusRequiresAction,
		Reference:    "pi_1",
		ClientSecret: "pi_1_secret",
	})
	assert.Equal(t, true, body["requiresAction"])
	assert.Equal(t, "pi_1_secret", body["clientSecret"])
}

func TestResultDeclineCodePassesThrough(t *testing.T) {
	status, body := Result(&models.ChargeResult{
		Status:      models.StatusRequiresPaymentMethod,
		Reference:   "pi_1",
		DeclineCode: "insufficient_funds",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_funds", body["declineCode"])
}

func TestInternalRedaction(t *testing.T) {
	err := errors.New("db connection string leaked")

	status, body := Internal(err, false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body, "details")

	_, body = Internal(err, true)
	assert.Equal(t, "db connection string leaked", body["details"])
}
