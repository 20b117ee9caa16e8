package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charge-gateway/internal/events"
	"charge-gateway/internal/gateway"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
	"charge-gateway/internal/normalize"
	"charge-gateway/internal/storage"
)

// Gateway is the processor adapter the service calls through. Satisfied by
// *gateway.Client.
type Gateway interface {
	CreateIntent(ctx context.Context, req *models.ProcessorRequest) (*models.ChargeResult, error)
	CreatePaymentMethod(ctx context.Context, card *models.CardDetails, addr *models.Address) (string, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodRef, returnURL string) (*models.ChargeResult, error)
	RetrieveIntent(ctx context.Context, intentID string) (*models.ChargeResult, error)
}

// EventPublisher is satisfied by *events.Producer.
type EventPublisher interface {
	PublishChargeEvent(event *models.ChargeEvent) error
}

// ChargeService composes normalizer, gateway, attempt store and event
// publishing behind the validated-request boundary. Handlers validate first;
// everything here operates on canonical values.
type ChargeService struct {
	normalizer *normalize.Normalizer
	gateway    Gateway
	store      storage.Store
	producer   EventPublisher
	log        *logger.Logger
}

func NewChargeService(normalizer *normalize.Normalizer, gw Gateway, store storage.Store, producer EventPublisher, log *logger.Logger) *ChargeService {
	return &ChargeService{
		normalizer: normalizer,
		gateway:    gw,
		store:      store,
		producer:   producer,
		log:        log,
	}
}

// CreateIntent creates a processor intent for a validated request and records
// the attempt.
func (s *ChargeService) CreateIntent(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	proc, err := s.normalizer.NormalizeIntent(req)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.CreateIntent(s.detach(ctx), proc)
	if err != nil {
		return nil, err
	}

	attempt := &models.ChargeAttempt{
		Reference:   res.Reference,
		Status:      res.Status,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}
	if err := s.store.SaveAttempt(s.detach(ctx), attempt); err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to record attempt %s: %v", res.Reference, err))
	}

	return res, nil
}

// ConfirmIntent tokenizes the card server-side when needed, confirms the
// intent with one processor call and folds the outcome into the attempt
// trail. A decline is recorded against the intent's failure re-entry status.
func (s *ChargeService) ConfirmIntent(ctx context.Context, intentID string, req *models.ChargeRequest, returnURL string) (*models.ChargeResult, error) {
	mode := normalize.ModeServerCard
	if req.PaymentMethodID != "" {
		mode = normalize.ModeClientToken
	}

	proc, err := s.normalizer.Normalize(req, mode)
	if err != nil {
		return nil, err
	}

	callCtx := s.detach(ctx)

	paymentMethodRef := proc.PaymentMethodID
	if mode == normalize.ModeServerCard {
		paymentMethodRef, err = s.gateway.CreatePaymentMethod(callCtx, proc.Card, proc.BillingAddress)
		if err != nil {
			return nil, err
		}
	}

	res, err := s.gateway.ConfirmIntent(callCtx, intentID, paymentMethodRef, returnURL)
	if err != nil {
		var ge *gateway.GatewayError
		if errors.As(err, &ge) && ge.ClientFault() {
			s.recordStatus(callCtx, intentID, models.StatusRequiresPaymentMethod, ge.DeclineCode)
			s.publishEvent(events.EventFailed, intentID, nil)
		}
		return nil, err
	}

	s.RecordResult(callCtx, res)
	return res, nil
}

// RetrieveIntent reads the current processor state without side effects on
// the attempt trail.
func (s *ChargeService) RetrieveIntent(ctx context.Context, intentID string) (*models.ChargeResult, error) {
	return s.gateway.RetrieveIntent(s.detach(ctx), intentID)
}

// RecordResult upserts the attempt trail for a classified result and
// broadcasts the matching lifecycle event. Used after confirmations and for
// verified webhook transitions.
func (s *ChargeService) RecordResult(ctx context.Context, res *models.ChargeResult) {
	s.recordStatus(ctx, res.Reference, res.Status, res.DeclineCode)

	switch res.Status {
	case models.StatusSucceeded:
		s.publishEvent(events.EventSucceeded, res.Reference, nil)
	case models.StatusFailed:
		s.publishEvent(events.EventFailed, res.Reference, nil)
	case models.StatusRequiresAction:
		s.publishEvent(events.EventRequiresAction, res.Reference, nil)
	}
}

// ProcessChargeEvent is the consumer handler: it folds events produced by
// sibling replicas into the local attempt store.
func (s *ChargeService) ProcessChargeEvent(event *models.ChargeEvent) error {
	s.log.LogKafka("EVENT_RECEIVED", event.Type, fmt.Sprintf("Processing event for charge %s", event.Reference))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if event.Attempt != nil {
		return s.store.SaveAttempt(ctx, event.Attempt)
	}

	status := statusForEvent(event.Type)
	if status == "" {
		s.log.Warn("KAFKA", fmt.Sprintf("Unknown event type received: %s", event.Type))
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
	return s.store.UpsertStatus(ctx, event.Reference, status, "")
}

func statusForEvent(eventType string) models.ChargeStatus {
	switch eventType {
	case events.EventSucceeded:
		return models.StatusSucceeded
	case events.EventFailed:
		return models.StatusFailed
	case events.EventRequiresAction:
		return models.StatusRequiresAction
	default:
		return ""
	}
}

func (s *ChargeService) recordStatus(ctx context.Context, reference string, status models.ChargeStatus, declineCode string) {
	if err := s.store.UpsertStatus(ctx, reference, status, declineCode); err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to record status %s for %s: %v", status, reference, err))
	}
}

func (s *ChargeService) publishEvent(eventType, reference string, attempt *models.ChargeAttempt) {
	event := &models.ChargeEvent{
		Type:      eventType,
		Reference: reference,
		Attempt:   attempt,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishChargeEvent(event); err != nil {
		// The charge already settled at the processor; a publish failure is
		// logged, never surfaced to the caller.
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for charge %s: %v", eventType, reference, err))
	}
}

// detach breaks the link to the inbound request context: an in-flight
// processor call runs to completion even when the client disconnects, so the
// processor-side intent never lands in an ambiguous state. The gateway's own
// HTTP client enforces the call timeout.
func (s *ChargeService) detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
