package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ChargeStatus mirrors the processor's intent lifecycle as observed on each
// call. The processor is authoritative; this service only classifies the
// status string it returns.
type ChargeStatus string

const (
	StatusRequiresPaymentMethod ChargeStatus = "requires_payment_method"
	StatusRequiresAction        ChargeStatus = "requires_action"
	StatusProcessing            ChargeStatus = "processing"
	StatusSucceeded             ChargeStatus = "succeeded"
	StatusFailed                ChargeStatus = "failed"
)

// Terminal reports whether no further transition is expected for the status.
// requires_payment_method is not terminal: the caller may resubmit a new
// payment method against the same intent.
func (s ChargeStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CardDetails holds raw card fields. Never persisted and never logged; the
// value exists only for the duration of one request.
type CardDetails struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Address is a billing address in the processor's shape.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// ChargeRequest is the canonical, validated form of one inbound charge call.
// Exactly one of Card or PaymentMethodID is set when a payment method is
// involved. Created per HTTP call, never stored.
type ChargeRequest struct {
	AmountMinor     int64
	Currency        string
	Description     string
	Card            *CardDetails
	PaymentMethodID string
	BillingAddress  *Address
	IdempotencyKey  string
}

// ProcessorRequest is the normalized request handed to the gateway client.
// IdempotencyKey is always populated.
type ProcessorRequest struct {
	AmountMinor     int64
	Currency        string
	Description     string
	Card            *CardDetails
	PaymentMethodID string
	BillingAddress  *Address
	IdempotencyKey  string
	Metadata        map[string]string
}

// ChargeResult is the per-call view of a processor intent.
type ChargeResult struct {
	Status       ChargeStatus `json:"status"`
	Reference    string       `json:"reference"`
	ClientSecret string       `json:"clientSecret,omitempty"`
	DeclineCode  string       `json:"declineCode,omitempty"`
}

// ChargeAttempt is the audit record kept per processor reference. It carries
// references and statuses only, never card data. The processor remains the
// system of record.
type ChargeAttempt struct {
	bun.BaseModel `bun:"table:charge_attempts"`

	Reference   string       `json:"reference" bun:"reference,pk"`
	Status      ChargeStatus `json:"status" bun:"status"`
	AmountMinor int64        `json:"amount_minor" bun:"amount_minor"`
	Currency    string       `json:"currency" bun:"currency"`
	DeclineCode string       `json:"decline_code,omitempty" bun:"decline_code"`
	CreatedAt   time.Time    `json:"created_at" bun:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bun:"updated_at"`
}

// ChargeEvent is the lifecycle event published to Kafka when an attempt
// reaches a status worth broadcasting.
type ChargeEvent struct {
	Type      string         `json:"type"`
	Reference string         `json:"reference"`
	Attempt   *ChargeAttempt `json:"attempt"`
	Timestamp time.Time      `json:"timestamp"`
}
