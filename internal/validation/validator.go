package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"charge-gateway/internal/config"
	"charge-gateway/internal/models"
)

// Field error codes. The same input always produces the same errors; nothing
// in this package performs I/O.
const (
	CodeInvalidAmount        = "InvalidAmount"
	CodeAmountTooLarge       = "AmountTooLarge"
	CodeInvalidCurrency      = "InvalidCurrency"
	CodeInvalidExpiry        = "InvalidExpiry"
	CodeInvalidCardNumber    = "InvalidCardNumber"
	CodeInvalidCVC           = "InvalidCVC"
	CodeInvalidPin           = "InvalidPin"
	CodeInvalidAddress       = "InvalidAddress"
	CodeInvalidPaymentMethod = "InvalidPaymentMethod"
)

// FieldError is one validation failure. Violations are always collected and
// returned together, never short-circuited at the first error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Messages flattens a list of field errors for the response envelope.
func Messages(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// Validator checks the shape and range of inbound payment fields. Constructed
// once from config; all methods are pure.
type Validator struct {
	minAmountMinor  int64
	maxAmountMinor  int64
	defaultCurrency string
	requirePIN      bool
	countries       map[string]struct{}
	countryList     []string
}

// New builds a Validator from the payments section of the service config.
func New(cfg config.PaymentsConfig) *Validator {
	countries := make(map[string]struct{}, len(cfg.SupportedCountries))
	list := make([]string, 0, len(cfg.SupportedCountries))
	for _, c := range cfg.SupportedCountries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := countries[c]; ok {
			continue
		}
		countries[c] = struct{}{}
		list = append(list, c)
	}

	return &Validator{
		minAmountMinor:  cfg.MinAmountMinor,
		maxAmountMinor:  cfg.MaxAmountMinor,
		defaultCurrency: strings.ToLower(cfg.DefaultCurrency),
		requirePIN:      cfg.RequirePIN,
		countries:       countries,
		countryList:     list,
	}
}

// SupportedCountries returns the configured allow-list in configuration order.
func (v *Validator) SupportedCountries() []string {
	out := make([]string, len(v.countryList))
	copy(out, v.countryList)
	return out
}

// CountrySupported reports membership in the supported-country set.
func (v *Validator) CountrySupported(country string) bool {
	_, ok := v.countries[strings.ToUpper(country)]
	return ok
}

// Currency lower-cases the given code, falling back to the configured default
// when absent.
func (v *Validator) Currency(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return v.defaultCurrency
	}
	return raw
}

// Amount parses a positive decimal expressed in major units ("57.48") and
// converts it to the currency's minor unit without going through floats.
func (v *Validator) Amount(raw, currency string) (int64, []FieldError) {
	minor, err := parseMinorUnits(raw, minorUnitExponent(currency))
	if err != nil {
		return 0, []FieldError{{
			Field:   "amount",
			Code:    CodeInvalidAmount,
			Message: fmt.Sprintf("amount %q is not a valid positive decimal", raw),
		}}
	}
	if minor < v.minAmountMinor {
		return 0, []FieldError{{
			Field:   "amount",
			Code:    CodeInvalidAmount,
			Message: fmt.Sprintf("amount must be at least %d in minor units, got %d", v.minAmountMinor, minor),
		}}
	}
	if v.maxAmountMinor > 0 && minor > v.maxAmountMinor {
		return 0, []FieldError{{
			Field:   "amount",
			Code:    CodeAmountTooLarge,
			Message: fmt.Sprintf("amount exceeds the configured maximum of %d minor units", v.maxAmountMinor),
		}}
	}
	return minor, nil
}

// Expiry accepts "MM/YY" or "MM/YYYY". Two-digit years map to the 2000s.
func (v *Validator) Expiry(raw string) (month, year int, errs []FieldError) {
	invalid := func() (int, int, []FieldError) {
		return 0, 0, []FieldError{{
			Field:   "expiry",
			Code:    CodeInvalidExpiry,
			Message: fmt.Sprintf("expiry %q must be MM/YY or MM/YYYY with month 1-12", raw),
		}}
	}

	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return invalid()
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || m < 1 || m > 12 {
		return invalid()
	}
	ys := strings.TrimSpace(parts[1])
	y, err := strconv.Atoi(ys)
	if err != nil {
		return invalid()
	}
	switch len(ys) {
	case 2:
		y += 2000
	case 4:
	default:
		return invalid()
	}
	return m, y, nil
}

// ExpiryParts validates already-split month/year fields.
func (v *Validator) ExpiryParts(month, year int) []FieldError {
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return []FieldError{{
			Field:   "expiry",
			Code:    CodeInvalidExpiry,
			Message: fmt.Sprintf("expiry month %d / year %d is out of range", month, year),
		}}
	}
	return nil
}

// CVC accepts 3-4 digits. Brand and Luhn checks are the processor's job.
func (v *Validator) CVC(raw string) []FieldError {
	if !digitsOnly(raw) || len(raw) < 3 || len(raw) > 4 {
		return []FieldError{{
			Field:   "cvc",
			Code:    CodeInvalidCVC,
			Message: "cvc must be 3 or 4 digits",
		}}
	}
	return nil
}

// PIN is validated only when the deployment requires one: exactly 4 or 6
// digits.
func (v *Validator) PIN(raw string) []FieldError {
	if !v.requirePIN {
		return nil
	}
	if !digitsOnly(raw) || (len(raw) != 4 && len(raw) != 6) {
		return []FieldError{{
			Field:   "pin",
			Code:    CodeInvalidPin,
			Message: "pin must be exactly 4 or 6 digits",
		}}
	}
	return nil
}

// Address collects every violation: short line1/postalCode, unsupported
// country, and a missing state where the country requires one.
func (v *Validator) Address(addr *models.Address) []FieldError {
	if addr == nil {
		return nil
	}

	var errs []FieldError
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Code: CodeInvalidAddress, Message: message})
	}

	if len(strings.TrimSpace(addr.Line1)) < 2 {
		add("billingAddress.line1", "line1 must be at least 2 characters")
	}
	if len(strings.TrimSpace(addr.PostalCode)) < 3 {
		add("billingAddress.postalCode", "postalCode must be at least 3 characters")
	}

	country := strings.ToUpper(strings.TrimSpace(addr.Country))
	if !v.CountrySupported(country) {
		add("billingAddress.country", fmt.Sprintf("country %q is not supported", addr.Country))
	} else if RequiresState(country) && strings.TrimSpace(addr.State) == "" {
		add("billingAddress.state", fmt.Sprintf("state is required for country %s", country))
	}

	return errs
}

// CreateInput is the raw material of POST /create-payment-intent.
type CreateInput struct {
	Amount         string
	Currency       string
	Description    string
	IdempotencyKey string
}

// ValidateCreate checks an intent-creation request and returns its canonical
// form, or every violation found.
func (v *Validator) ValidateCreate(in CreateInput) (*models.ChargeRequest, []FieldError) {
	currency := v.Currency(in.Currency)

	minor, errs := v.Amount(in.Amount, currency)
	if len(errs) > 0 {
		return nil, errs
	}

	return &models.ChargeRequest{
		AmountMinor:    minor,
		Currency:       currency,
		Description:    strings.TrimSpace(in.Description),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	}, nil
}

// ConfirmInput is the raw material of the confirm endpoints: either a
// pre-tokenized payment method id or raw card fields.
type ConfirmInput struct {
	PaymentMethodID string
	CardNumber      string
	Expiry          string
	ExpMonth        int
	ExpYear         int
	CVC             string
	PIN             string
	BillingAddress  *models.Address
	IdempotencyKey  string
}

// ValidateConfirm checks a confirmation request. All violations across card,
// pin and address fields are aggregated into one list.
func (v *Validator) ValidateConfirm(in ConfirmInput) (*models.ChargeRequest, []FieldError) {
	req := &models.ChargeRequest{
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	}

	var errs []FieldError

	switch {
	case in.PaymentMethodID != "":
		req.PaymentMethodID = strings.TrimSpace(in.PaymentMethodID)

	case in.CardNumber != "":
		card, cardErrs := v.validateCard(in)
		errs = append(errs, cardErrs...)
		req.Card = card

	default:
		errs = append(errs, FieldError{
			Field:   "paymentMethodId",
			Code:    CodeInvalidPaymentMethod,
			Message: "either paymentMethodId or raw card fields must be provided",
		})
	}

	errs = append(errs, v.Address(in.BillingAddress)...)
	if in.BillingAddress != nil {
		addr := *in.BillingAddress
		addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
		req.BillingAddress = &addr
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}

func (v *Validator) validateCard(in ConfirmInput) (*models.CardDetails, []FieldError) {
	var errs []FieldError

	number := strings.ReplaceAll(strings.TrimSpace(in.CardNumber), " ", "")
	if !digitsOnly(number) || len(number) < 12 || len(number) > 19 {
		errs = append(errs, FieldError{
			Field:   "cardNumber",
			Code:    CodeInvalidCardNumber,
			Message: "card number must be 12-19 digits",
		})
	}

	month, year := in.ExpMonth, in.ExpYear
	if in.Expiry != "" {
		var expErrs []FieldError
		month, year, expErrs = v.Expiry(in.Expiry)
		errs = append(errs, expErrs...)
	} else {
		errs = append(errs, v.ExpiryParts(month, year)...)
	}

	errs = append(errs, v.CVC(in.CVC)...)
	errs = append(errs, v.PIN(in.PIN)...)

	if len(errs) > 0 {
		return nil, errs
	}
	return &models.CardDetails{
		Number:   number,
		ExpMonth: month,
		ExpYear:  year,
		CVC:      in.CVC,
	}, nil
}

// parseMinorUnits converts a decimal string to minor units with integer
// arithmetic only. "57.48" with exponent 2 yields 5748; more fraction digits
// than the currency carries is an error, not a rounding.
func parseMinorUnits(raw string, exponent int) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return 0, fmt.Errorf("not a positive decimal: %q", raw)
	}

	intPart, fracPart := raw, ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		intPart, fracPart = raw[:i], raw[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("not a decimal: %q", raw)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !digitsOnly(intPart) || (fracPart != "" && !digitsOnly(fracPart)) {
		return 0, fmt.Errorf("not a decimal: %q", raw)
	}
	if len(fracPart) > exponent {
		return 0, fmt.Errorf("amount %q has more precision than the currency's minor unit", raw)
	}
	for len(fracPart) < exponent {
		fracPart += "0"
	}

	major, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, err
	}
	scale := int64(1)
	for i := 0; i < exponent; i++ {
		scale *= 10
	}
	// The scaled value must stay representable; a wrapped amount would be
	// forwarded to the processor as a different charge.
	if major > math.MaxInt64/scale {
		return 0, fmt.Errorf("amount %q does not fit the currency's minor unit range", raw)
	}
	minor := major * scale
	if fracPart != "" {
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, err
		}
		if minor > math.MaxInt64-frac {
			return 0, fmt.Errorf("amount %q does not fit the currency's minor unit range", raw)
		}
		minor += frac
	}
	if minor <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %q", raw)
	}
	return minor, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
