package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"charge-gateway/internal/events"
	"charge-gateway/internal/gateway"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
	"charge-gateway/internal/normalize"
	"charge-gateway/internal/storage"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, req *models.ProcessorRequest) (*models.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChargeResult), args.Error(1)
}

func (m *mockGateway) CreatePaymentMethod(ctx context.Context, card *models.CardDetails, addr *models.Address) (string, error) {
	args := m.Called(ctx, card, addr)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodRef, returnURL string) (*models.ChargeResult, error) {
	args := m.Called(ctx, intentID, paymentMethodRef, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChargeResult), args.Error(1)
}

func (m *mockGateway) RetrieveIntent(ctx context.Context, intentID string) (*models.ChargeResult, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChargeResult), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishChargeEvent(event *models.ChargeEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type sequentialKeys struct {
	next int
}

func (s *sequentialKeys) NextKey() (string, error) {
	s.next++
	return "test_key", nil
}

func newTestService(gw *mockGateway, pub *mockPublisher) (*ChargeService, *storage.InMemoryStore) {
	store := storage.NewInMemoryStore()
	svc := NewChargeService(normalize.New(&sequentialKeys{}), gw, store, pub, logger.NewLogger())
	return svc, store
}

func TestCreateIntentRecordsAttempt(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	gw.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req *models.ProcessorRequest) bool {
		return req.AmountMinor == 5748 && req.IdempotencyKey == "test_key"
	})).Return(&models.ChargeResult{
		Status:       models.StatusRequiresPaymentMethod,
		Reference:    "pi_1",
		ClientSecret: "pi_1_secret",
	}, nil)

	res, err := svc.CreateIntent(context.Background(), &models.ChargeRequest{
		AmountMinor: 5748,
		Currency:    "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", res.Reference)

	attempt, err := store.GetAttempt(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequiresPaymentMethod, attempt.Status)
	assert.Equal(t, int64(5748), attempt.AmountMinor)
	gw.AssertExpectations(t)
}

func TestConfirmIntentWithClientToken(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	gw.On("ConfirmIntent", mock.Anything, "pi_1", "pm_123", "").Return(&models.ChargeResult{
		Status:    models.StatusSucceeded,
		Reference: "pi_1",
	}, nil)
	pub.On("PublishChargeEvent", mock.MatchedBy(func(e *models.ChargeEvent) bool {
		return e.Type == events.EventSucceeded && e.Reference == "pi_1"
	})).Return(nil)

	res, err := svc.ConfirmIntent(context.Background(), "pi_1", &models.ChargeRequest{
		AmountMinor:     5748,
		PaymentMethodID: "pm_123",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, res.Status)

	attempt, err := store.GetAttempt(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, attempt.Status)

	// Tokenization must not happen when the caller already holds a token.
	gw.AssertNotCalled(t, "CreatePaymentMethod", mock.Anything, mock.Anything, mock.Anything)
	pub.AssertExpectations(t)
}

func TestConfirmIntentTokenizesRawCard(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, _ := newTestService(gw, pub)

	card := &models.CardDetails{Number: "4242424242424242", ExpMonth: 9, ExpYear: 2025, CVC: "123"}

	gw.On("CreatePaymentMethod", mock.Anything, card, mock.Anything).Return("pm_srv", nil)
	gw.On("ConfirmIntent", mock.Anything, "pi_1", "pm_srv", "https://example.com/done").Return(&models.ChargeResult{
		Status:       models.StatusRequiresAction,
		Reference:    "pi_1",
		ClientSecret: "pi_1_secret",
	}, nil)
	pub.On("PublishChargeEvent", mock.MatchedBy(func(e *models.ChargeEvent) bool {
		return e.Type == events.EventRequiresAction
	})).Return(nil)

	res, err := svc.ConfirmIntent(context.Background(), "pi_1", &models.ChargeRequest{
		AmountMinor: 5748,
		Card:        card,
	}, "https://example.com/done")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequiresAction, res.Status)
	assert.Equal(t, "pi_1_secret", res.ClientSecret)
	gw.AssertExpectations(t)
}

func TestConfirmIntentDeclineRecordsReentryStatus(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	decline := &gateway.GatewayError{
		Code:        "card_declined",
		DeclineCode: "insufficient_funds",
		StatusCode:  402,
		Message:     "Your card has insufficient funds.",
	}
	gw.On("ConfirmIntent", mock.Anything, "pi_1", "pm_123", "").Return(nil, decline)
	pub.On("PublishChargeEvent", mock.MatchedBy(func(e *models.ChargeEvent) bool {
		return e.Type == events.EventFailed && e.Reference == "pi_1"
	})).Return(nil)

	_, err := svc.ConfirmIntent(context.Background(), "pi_1", &models.ChargeRequest{
		AmountMinor:     5748,
		PaymentMethodID: "pm_123",
	}, "")
	require.ErrorIs(t, err, decline)

	// A decline leaves the intent open for a new payment method.
	attempt, getErr := store.GetAttempt(context.Background(), "pi_1")
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusRequiresPaymentMethod, attempt.Status)
	assert.Equal(t, "insufficient_funds", attempt.DeclineCode)
	pub.AssertExpectations(t)
}

func TestConfirmIntentProcessorFaultLeavesTrailUntouched(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	fault := &gateway.GatewayError{Code: "api_error", StatusCode: 500, Message: "boom"}
	gw.On("ConfirmIntent", mock.Anything, "pi_1", "pm_123", "").Return(nil, fault)

	_, err := svc.ConfirmIntent(context.Background(), "pi_1", &models.ChargeRequest{
		AmountMinor:     5748,
		PaymentMethodID: "pm_123",
	}, "")
	require.Error(t, err)

	// The outcome is unknown, so nothing is recorded or published.
	_, getErr := store.GetAttempt(context.Background(), "pi_1")
	assert.ErrorIs(t, getErr, storage.ErrAttemptNotFound)
	pub.AssertNotCalled(t, "PublishChargeEvent", mock.Anything)
}

func TestPublishFailureDoesNotFailTheCharge(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, _ := newTestService(gw, pub)

	gw.On("ConfirmIntent", mock.Anything, "pi_1", "pm_123", "").Return(&models.ChargeResult{
		Status:    models.StatusSucceeded,
		Reference: "pi_1",
	}, nil)
	pub.On("PublishChargeEvent", mock.Anything).Return(assert.AnError)

	res, err := svc.ConfirmIntent(context.Background(), "pi_1", &models.ChargeRequest{
		AmountMinor:     5748,
		PaymentMethodID: "pm_123",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, res.Status)
}

func TestRetrieveIntentHasNoSideEffects(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&models.ChargeResult{
		Status:    models.StatusSucceeded,
		Reference: "pi_1",
	}, nil)

	res, err := svc.RetrieveIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, res.Status)

	_, getErr := store.GetAttempt(context.Background(), "pi_1")
	assert.ErrorIs(t, getErr, storage.ErrAttemptNotFound)
	pub.AssertNotCalled(t, "PublishChargeEvent", mock.Anything)
}

func TestProcessChargeEventWithAttemptPayload(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	err := svc.ProcessChargeEvent(&models.ChargeEvent{
		Type:      events.EventSucceeded,
		Reference: "pi_1",
		Attempt: &models.ChargeAttempt{
			Reference:   "pi_1",
			Status:      models.StatusSucceeded,
			AmountMinor: 5748,
			Currency:    "usd",
		},
	})
	require.NoError(t, err)

	attempt, err := store.GetAttempt(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, int64(5748), attempt.AmountMinor)
}

func TestProcessChargeEventStatusOnly(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, store := newTestService(gw, pub)

	err := svc.ProcessChargeEvent(&models.ChargeEvent{
		Type:      events.EventFailed,
		Reference: "pi_2",
	})
	require.NoError(t, err)

	attempt, err := store.GetAttempt(context.Background(), "pi_2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, attempt.Status)
}

func TestProcessChargeEventUnknownType(t *testing.T) {
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc, _ := newTestService(gw, pub)

	err := svc.ProcessChargeEvent(&models.ChargeEvent{
		Type:      "charge.telepathy",
		Reference: "pi_3",
	})
	assert.Error(t, err)
}
