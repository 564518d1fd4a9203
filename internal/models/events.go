package models

import "time"

// Event types
const (
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
	EventTypeOrderCreated     = "ORDER_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout creates an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID           int64  `json:"order_id"`
	UserID            int64  `json:"user_id"`
	MerchantReference string `json:"merchant_reference"`
	TotalAmount       int64  `json:"total_amount"`
}

// PaymentCompletedEvent published after a verified success callback commits
type PaymentCompletedEvent struct {
	BaseEvent
	OrderID           int64  `json:"order_id"`
	MerchantReference string `json:"merchant_reference"`
	PaidAmount        int64  `json:"paid_amount"`
}

// PaymentFailedEvent published after a verified failure callback commits
type PaymentFailedEvent struct {
	BaseEvent
	OrderID           int64  `json:"order_id"`
	MerchantReference string `json:"merchant_reference"`
	Reason            string `json:"reason"`
}
