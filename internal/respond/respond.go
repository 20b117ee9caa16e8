package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"charge-gateway/internal/gateway"
	"charge-gateway/internal/models"
	"charge-gateway/internal/validation"
)

// This package owns the mapping from pipeline outcomes to HTTP status codes
// and the standard envelope {error, success:false, details?, code?}.

// Error builds the standard error envelope.
func Error(message, details, code string) gin.H {
	body := gin.H{
		"success": false,
		"error":   message,
	}
	if details != "" {
		body["details"] = details
	}
	if code != "" {
		body["code"] = code
	}
	return body
}

// ValidationFailed maps an aggregated validation failure to 400 with the full
// field list.
func ValidationFailed(errs []validation.FieldError) (int, gin.H) {
	body := Error("validation failed", "", "validation_error")
	body["errors"] = errs
	body["fields"] = validation.Messages(errs)
	return http.StatusBadRequest, body
}

// GatewayFailure maps a processor error. Declines and other request-caused
// rejections are the caller's 400; processor or network faults are a 502.
func GatewayFailure(err *gateway.GatewayError) (int, gin.H) {
	if err.ClientFault() {
		body := Error("payment was declined by the processor", err.Message, err.Code)
		if err.DeclineCode != "" {
			body["declineCode"] = err.DeclineCode
		}
		return http.StatusBadRequest, body
	}
	return http.StatusBadGateway, Error("payment processor unavailable", "", err.Code)
}

// Result maps a classified charge result. requires_action still counts as
// success: the client completes the challenge with the returned secret.
// requires_payment_method is the failure re-entry point and maps to 400.
func Result(res *models.ChargeResult) (int, gin.H) {
	switch res.Status {
	case models.StatusSucceeded:
		return http.StatusOK, gin.H{
			"success":   true,
			"status":    res.Status,
			"reference": res.Reference,
		}

	case models.StatusRequiresAction:
		return http.StatusOK, gin.H{
			"success":        true,
			"status":         res.Status,
			"reference":      res.Reference,
			"requiresAction": true,
			"clientSecret":   res.ClientSecret,
		}

	case models.StatusProcessing:
		return http.StatusOK, gin.H{
			"success":   true,
			"status":    res.Status,
			"reference": res.Reference,
		}

	case models.StatusRequiresPaymentMethod:
		body := Error("a new payment method is required", "", "payment_method_required")
		body["status"] = res.Status
		body["reference"] = res.Reference
		if res.DeclineCode != "" {
			body["declineCode"] = res.DeclineCode
		}
		return http.StatusBadRequest, body

	default:
		body := Error("payment failed", "", "payment_failed")
		body["status"] = models.StatusFailed
		body["reference"] = res.Reference
		if res.DeclineCode != "" {
			body["declineCode"] = res.DeclineCode
		}
		return http.StatusBadRequest, body
	}
}

// Internal maps an unexpected fault to 500. The message is suppressed unless
// the deployment runs with debug configuration.
func Internal(err error, debug bool) (int, gin.H) {
	if debug && err != nil {
		return http.StatusInternalServerError, Error("internal server error", err.Error(), "internal_error")
	}
	return http.StatusInternalServerError, Error("internal server error", "", "internal_error")
}
