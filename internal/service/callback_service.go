package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/models"
	"payment-service/internal/store"
	"payment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler error taxonomy. The HTTP layer maps these to response codes
// that drive the gateway's retry behavior.
var (
	// ErrHashMismatch means the callback failed integrity verification.
	// Never retried; treated as a potential security event.
	ErrHashMismatch = errors.New("callback hash mismatch")

	// ErrOrderNotFound means no order matches the merchant reference.
	ErrOrderNotFound = errors.New("no order for merchant reference")

	// ErrMalformedAmount means total_amount did not parse as an integer
	// amount in the smallest currency unit.
	ErrMalformedAmount = errors.New("malformed total_amount")

	// ErrDeliveryInFlight means another delivery for the same reference
	// holds the callback gate. Surfaced as retryable so the gateway
	// re-delivers once the in-flight request settles.
	ErrDeliveryInFlight = errors.New("concurrent delivery in flight")
)

// OrderStore is the slice of the order store the reconciler consumes.
type OrderStore interface {
	ApplyPaymentOutcome(ctx context.Context, outcome *store.PaymentOutcome) (*store.ApplyResult, error)
	InsertCallbackAudit(ctx context.Context, audit *models.CallbackAudit) error
}

// CallbackGate serializes deliveries per merchant reference across
// instances. The database row lock is the correctness guarantee; the gate
// just keeps duplicate concurrent deliveries from piling up on it.
type CallbackGate interface {
	AcquireCallbackGate(ctx context.Context, merchantRef string, ttl time.Duration) (bool, error)
	ReleaseCallbackGate(ctx context.Context, merchantRef string) error
}

// OutcomePublisher fans out committed payment outcomes.
type OutcomePublisher interface {
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// CallbackService reconciles asynchronous gateway callbacks against order
// state: verify authenticity, look up the order, apply at most one terminal
// transition per outcome, acknowledge.
type CallbackService struct {
	store     OrderStore
	gate      CallbackGate
	publisher OutcomePublisher
	verifier  *gateway.Verifier
	gateTTL   time.Duration
	logger    *zap.Logger
}

// NewCallbackService creates a new callback service. gate and publisher may
// be nil; processing then relies on the store row lock alone and skips
// event fan-out.
func NewCallbackService(
	orderStore OrderStore,
	gate CallbackGate,
	publisher OutcomePublisher,
	verifier *gateway.Verifier,
	gateTTL time.Duration,
) *CallbackService {
	return &CallbackService{
		store:     orderStore,
		gate:      gate,
		publisher: publisher,
		verifier:  verifier,
		gateTTL:   gateTTL,
		logger:    util.GetLogger(),
	}
}

// ProcessCallback handles one inbound gateway notification. rawPayload is
// the verbatim request body, kept for the audit trail. On success the
// returned result says whether the transition was applied, a duplicate, or
// a conflicting late delivery that was ignored.
func (cs *CallbackService) ProcessCallback(ctx context.Context, n *gateway.CallbackNotification, rawPayload string) (*store.ApplyResult, error) {
	ctx, span := util.StartSpan(ctx, "CallbackService.ProcessCallback")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CallbackProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	// Authenticity first: the hash is the only proof the callback came
	// from the gateway. Nothing is read or written before it checks out.
	if !cs.verifier.Verify(n.MerchantOID, n.Status, n.TotalAmount, n.Hash) {
		cs.logger.Warn("Callback hash mismatch",
			zap.String("merchant_reference", n.MerchantOID),
			zap.String("status", n.Status))
		util.CallbackVerificationFailures.Inc()
		cs.audit(ctx, n.MerchantOID, models.AuditOutcomeHashMismatch, rawPayload)
		return nil, ErrHashMismatch
	}

	amount, err := strconv.ParseInt(n.TotalAmount, 10, 64)
	if err != nil {
		cs.audit(ctx, n.MerchantOID, models.AuditOutcomeMalformed, rawPayload)
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, n.TotalAmount)
	}

	if cs.gate != nil {
		acquired, err := cs.gate.AcquireCallbackGate(ctx, n.MerchantOID, cs.gateTTL)
		if err != nil {
			// Redis being down must not block payments; the row lock
			// still serializes per order.
			cs.logger.Warn("Callback gate unavailable, relying on row lock",
				zap.String("merchant_reference", n.MerchantOID),
				zap.Error(err))
		} else if !acquired {
			return nil, ErrDeliveryInFlight
		} else {
			defer func() {
				if err := cs.gate.ReleaseCallbackGate(ctx, n.MerchantOID); err != nil {
					cs.logger.Warn("Failed to release callback gate",
						zap.String("merchant_reference", n.MerchantOID),
						zap.Error(err))
				}
			}()
		}
	}

	outcome := &store.PaymentOutcome{
		MerchantReference: n.MerchantOID,
		Succeeded:         n.Succeeded(),
		PaidAmount:        amount,
		RawStatus:         n.Status,
		FailureCode:       n.FailedReasonCode,
		FailureMessage:    n.FailedReasonMsg,
		RawPayload:        rawPayload,
	}

	result, err := cs.store.ApplyPaymentOutcome(ctx, outcome)
	if errors.Is(err, store.ErrOrderNotFound) {
		cs.logger.Warn("Callback for unknown order",
			zap.String("merchant_reference", n.MerchantOID))
		cs.audit(ctx, n.MerchantOID, models.AuditOutcomeOrderNotFound, rawPayload)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		// Transaction rolled back, nothing committed. The gateway
		// retries and the transition stays safe to re-apply.
		return nil, fmt.Errorf("failed to apply payment outcome: %w", err)
	}

	util.CallbacksReceivedTotal.WithLabelValues(result.Outcome).Inc()

	switch result.Outcome {
	case models.AuditOutcomeApplied:
		if result.Order.PaymentStatus == models.PaymentStatusCompleted {
			util.PaymentsCompletedTotal.Inc()
		} else {
			util.PaymentsFailedTotal.Inc()
		}
		cs.logger.Info("Payment outcome applied",
			zap.String("merchant_reference", n.MerchantOID),
			zap.String("payment_status", result.Order.PaymentStatus),
			zap.Int64("amount", amount))
		cs.publishOutcome(ctx, result.Order, n)
	case models.AuditOutcomeConflict:
		cs.logger.Warn("Conflicting late callback ignored",
			zap.String("merchant_reference", n.MerchantOID),
			zap.String("terminal_status", result.Order.PaymentStatus),
			zap.String("reported_status", n.Status))
	default:
		cs.logger.Info("Duplicate callback short-circuited",
			zap.String("merchant_reference", n.MerchantOID))
	}

	return result, nil
}

// RecordMalformedCallback audits a callback rejected at parse time. The
// merchant reference may be empty when the field itself failed to bind;
// the raw payload still lands in the transaction log for reconciliation.
func (cs *CallbackService) RecordMalformedCallback(ctx context.Context, merchantRef, rawPayload string) {
	cs.audit(ctx, merchantRef, models.AuditOutcomeMalformed, rawPayload)
}

// publishOutcome fans out the committed outcome. Publish failures are
// logged; the gateway already got its acknowledgement.
func (cs *CallbackService) publishOutcome(ctx context.Context, order *models.Order, n *gateway.CallbackNotification) {
	if cs.publisher == nil {
		return
	}

	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}

	if order.PaymentStatus == models.PaymentStatusCompleted {
		base.EventType = models.EventTypePaymentCompleted
		event := &models.PaymentCompletedEvent{
			BaseEvent:         base,
			OrderID:           order.ID,
			MerchantReference: order.MerchantReference,
			PaidAmount:        order.PaidAmount,
		}
		if err := cs.publisher.PublishPaymentCompleted(ctx, event); err != nil {
			cs.logger.Error("Failed to publish PaymentCompleted event", zap.Error(err))
		}
		return
	}

	base.EventType = models.EventTypePaymentFailed
	event := &models.PaymentFailedEvent{
		BaseEvent:         base,
		OrderID:           order.ID,
		MerchantReference: order.MerchantReference,
		Reason:            n.FailedReasonMsg,
	}
	if err := cs.publisher.PublishPaymentFailed(ctx, event); err != nil {
		cs.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}

// audit appends a transaction-log entry for a rejected callback. Best
// effort: a failed audit write is logged but never changes the response.
func (cs *CallbackService) audit(ctx context.Context, merchantRef, outcome, rawPayload string) {
	util.CallbacksReceivedTotal.WithLabelValues(outcome).Inc()

	entry := &models.CallbackAudit{
		MerchantReference: merchantRef,
		Outcome:           outcome,
		RawPayload:        rawPayload,
	}
	if err := cs.store.InsertCallbackAudit(ctx, entry); err != nil {
		cs.logger.Error("Failed to write callback audit entry",
			zap.String("merchant_reference", merchantRef),
			zap.String("outcome", outcome),
			zap.Error(err))
	}
}
