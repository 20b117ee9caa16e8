package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"charge-gateway/internal/models"
)

// Mode selects which of the two integration styles shaped the request.
type Mode int

const (
	// ModeServerCard wraps raw card fields so the gateway creates a payment
	// method server-side before confirmation.
	ModeServerCard Mode = iota
	// ModeClientToken passes a client-created payment method id through
	// unchanged.
	ModeClientToken
)

var (
	ErrMissingCard  = errors.New("server-side card mode requires card details")
	ErrMissingToken = errors.New("client-tokenized mode requires a payment method id")
)

// KeySource yields idempotency keys for requests whose caller did not supply
// one.
type KeySource interface {
	NextKey() (string, error)
}

// CounterKeySource synthesizes keys from an atomically incremented counter,
// the current timestamp and a random suffix. Best-effort: keys are not
// guaranteed unique across process restarts unless a persisted source is
// used instead. Callers that care should supply their own durable key.
type CounterKeySource struct {
	counter atomic.Int64
}

func NewCounterKeySource() *CounterKeySource {
	return &CounterKeySource{}
}

func (s *CounterKeySource) NextKey() (string, error) {
	n := s.counter.Add(1)
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("chg_%d_%d_%s", time.Now().Unix(), n, suffix), nil
}

// Normalizer maps a canonical ChargeRequest into the processor's request
// shape. Given the same input and the same injected key source state, the
// mapping is deterministic.
type Normalizer struct {
	keys KeySource
}

func New(keys KeySource) *Normalizer {
	return &Normalizer{keys: keys}
}

// NormalizeIntent shapes an intent-creation request, which carries no payment
// method yet: the method reference is attached at confirmation. The
// idempotency key rule is the same as for Normalize.
func (n *Normalizer) NormalizeIntent(req *models.ChargeRequest) (*models.ProcessorRequest, error) {
	out := &models.ProcessorRequest{
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	}
	if out.IdempotencyKey == "" {
		key, err := n.keys.NextKey()
		if err != nil {
			return nil, fmt.Errorf("synthesize idempotency key: %w", err)
		}
		out.IdempotencyKey = key
	}
	if req.AmountMinor > 0 {
		out.Metadata = map[string]string{
			"amount_minor": strconv.FormatInt(req.AmountMinor, 10),
			"source":       "charge-gateway",
		}
	}
	return out, nil
}

// Normalize produces the ProcessorRequest for the given mode. An idempotency
// key is always attached: the caller's when present, a synthesized one
// otherwise.
func (n *Normalizer) Normalize(req *models.ChargeRequest, mode Mode) (*models.ProcessorRequest, error) {
	out := &models.ProcessorRequest{
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		Description:    req.Description,
		BillingAddress: req.BillingAddress,
		IdempotencyKey: req.IdempotencyKey,
	}

	switch mode {
	case ModeServerCard:
		if req.Card == nil {
			return nil, ErrMissingCard
		}
		out.Card = req.Card
	case ModeClientToken:
		if req.PaymentMethodID == "" {
			return nil, ErrMissingToken
		}
		out.PaymentMethodID = req.PaymentMethodID
	default:
		return nil, fmt.Errorf("unknown normalization mode %d", mode)
	}

	if out.IdempotencyKey == "" {
		key, err := n.keys.NextKey()
		if err != nil {
			return nil, fmt.Errorf("synthesize idempotency key: %w", err)
		}
		out.IdempotencyKey = key
	}

	if req.AmountMinor > 0 {
		out.Metadata = map[string]string{
			"amount_minor": strconv.FormatInt(req.AmountMinor, 10),
			"source":       "charge-gateway",
		}
	}

	return out, nil
}
