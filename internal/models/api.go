package models

import "encoding/json"

// CreateIntentRequest is the body of POST /create-payment-intent. Amount is a
// json.Number so both "57.48" and 57.48 are accepted.
type CreateIntentRequest struct {
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency,omitempty"`
	Description    string      `json:"description,omitempty"`
	IdempotencyKey string      `json:"idempotencyKey,omitempty"`
}

// CreateIntentResponse is returned when intent creation succeeds.
type CreateIntentResponse struct {
	Success         bool   `json:"success"`
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmRequest is the body of POST /confirm-payment and its
// /confirm-payment-intent variant. Callers supply either a pre-tokenized
// paymentMethodId or raw card fields. Expiry may come as one "MM/YY" string
// or as split month/year fields.
type ConfirmRequest struct {
	PaymentIntentID string   `json:"paymentIntentId"`
	PaymentMethodID string   `json:"paymentMethodId,omitempty"`
	CardNumber      string   `json:"cardNumber,omitempty"`
	Expiry          string   `json:"expiry,omitempty"`
	ExpMonth        int      `json:"expMonth,omitempty"`
	ExpYear         int      `json:"expYear,omitempty"`
	CVC             string   `json:"cvc,omitempty"`
	PIN             string   `json:"pin,omitempty"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`
	ReturnURL       string   `json:"returnUrl,omitempty"`
	IdempotencyKey  string   `json:"idempotencyKey,omitempty"`
}

// CountriesResponse is the body of GET /api/countries.
type CountriesResponse struct {
	Success   bool     `json:"success"`
	Countries []string `json:"countries"`
	Count     int      `json:"count"`
}
