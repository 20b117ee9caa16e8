package normalize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge-gateway/internal/models"
)

// fixedKeySource returns a deterministic sequence so mapping tests can assert
// exact output.
type fixedKeySource struct {
	calls int
}

func (s *fixedKeySource) NextKey() (string, error) {
	s.calls++
	return fmt.Sprintf("key_%d", s.calls), nil
}

type failingKeySource struct{}

func (failingKeySource) NextKey() (string, error) {
	return "", fmt.Errorf("key source down")
}

func TestNormalizeServerCardMode(t *testing.T) {
	n := New(&fixedKeySource{})

	req := &models.ChargeRequest{
		AmountMinor: 5748,
		Currency:    "usd",
		Description: "order 42",
		Card: &models.CardDetails{
			Number:   "4242424242424242",
			ExpMonth: 9,
			ExpYear:  2025,
			CVC:      "123",
		},
	}

	out, err := n.Normalize(req, ModeServerCard)
	require.NoError(t, err)
	assert.Equal(t, int64(5748), out.AmountMinor)
	assert.Equal(t, "usd", out.Currency)
	assert.Equal(t, req.Card, out.Card)
	assert.Empty(t, out.PaymentMethodID)
	assert.Equal(t, "key_1", out.IdempotencyKey)
	assert.Equal(t, "5748", out.Metadata["amount_minor"])
	assert.Equal(t, "charge-gateway", out.Metadata["source"])
}

func TestNormalizeClientTokenMode(t *testing.T) {
	n := New(&fixedKeySource{})

	out, err := n.Normalize(&models.ChargeRequest{
		AmountMinor:     100,
		Currency:        "usd",
		PaymentMethodID: "pm_123",
	}, ModeClientToken)
	require.NoError(t, err)
	assert.Equal(t, "pm_123", out.PaymentMethodID)
	assert.Nil(t, out.Card)
}

func TestNormalizeModeRequirements(t *testing.T) {
	n := New(&fixedKeySource{})

	_, err := n.Normalize(&models.ChargeRequest{AmountMinor: 100}, ModeServerCard)
	assert.ErrorIs(t, err, ErrMissingCard)

	_, err = n.Normalize(&models.ChargeRequest{AmountMinor: 100}, ModeClientToken)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = n.Normalize(&models.ChargeRequest{AmountMinor: 100}, Mode(99))
	assert.Error(t, err)
}

func TestNormalizeKeepsCallerIdempotencyKey(t *testing.T) {
	keys := &fixedKeySource{}
	n := New(keys)

	out, err := n.Normalize(&models.ChargeRequest{
		AmountMinor:     100,
		PaymentMethodID: "pm_123",
		IdempotencyKey:  "caller-key",
	}, ModeClientToken)
	require.NoError(t, err)
	assert.Equal(t, "caller-key", out.IdempotencyKey)
	assert.Zero(t, keys.calls)
}

func TestNormalizeIsDeterministicGivenSameKeyState(t *testing.T) {
	req := &models.ChargeRequest{
		AmountMinor:     5748,
		Currency:        "usd",
		PaymentMethodID: "pm_123",
	}

	first, err := New(&fixedKeySource{}).Normalize(req, ModeClientToken)
	require.NoError(t, err)
	second, err := New(&fixedKeySource{}).Normalize(req, ModeClientToken)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeIntent(t *testing.T) {
	n := New(&fixedKeySource{})

	out, err := n.NormalizeIntent(&models.ChargeRequest{
		AmountMinor: 5748,
		Currency:    "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "key_1", out.IdempotencyKey)
	assert.Nil(t, out.Card)
	assert.Empty(t, out.PaymentMethodID)
	assert.Equal(t, "5748", out.Metadata["amount_minor"])
}

func TestNormalizeKeySourceFailure(t *testing.T) {
	n := New(failingKeySource{})

	_, err := n.NormalizeIntent(&models.ChargeRequest{AmountMinor: 100})
	assert.Error(t, err)

	_, err = n.Normalize(&models.ChargeRequest{
		AmountMinor:     100,
		PaymentMethodID: "pm_123",
	}, ModeClientToken)
	assert.Error(t, err)
}

func TestCounterKeySourceShape(t *testing.T) {
	s := NewCounterKeySource()

	first, err := s.NextKey()
	require.NoError(t, err)
	second, err := s.NextKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "chg_"))
	assert.Len(t, strings.Split(first, "_"), 4)
}
