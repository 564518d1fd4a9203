package worker

import (
	"context"
	"fmt"
	"log"

	"payment-service/internal/broker"
	"payment-service/internal/models"
	"payment-service/internal/store"
	"payment-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes committed payment outcome events and records
// the customer notifications derived from them.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, st *store.Store) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentCompleted(w.handlePaymentCompleted)
	eventHandler.OnPaymentFailed(w.handlePaymentFailed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handlePaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	return w.record(ctx, event.BaseEvent, event.MerchantReference, "payment_completed",
		fmt.Sprintf("Payment of %d received for order %s", event.PaidAmount, event.MerchantReference))
}

func (w *NotificationWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	reason := event.Reason
	if reason == "" {
		reason = "payment declined"
	}
	return w.record(ctx, event.BaseEvent, event.MerchantReference, "payment_failed",
		fmt.Sprintf("Payment for order %s failed: %s", event.MerchantReference, reason))
}

// record writes one notification per event, deduplicating redelivered
// events by event id.
func (w *NotificationWorker) record(ctx context.Context, base models.BaseEvent, merchantRef, kind, body string) error {
	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	notification := &models.Notification{
		MerchantReference: merchantRef,
		Kind:              kind,
		Body:              body,
	}
	if err := w.store.InsertNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	util.NotificationsRecordedTotal.Inc()

	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Notification recorded",
		zap.String("merchant_reference", merchantRef),
		zap.String("kind", kind))
	return nil
}
