package models

import (
	"database/sql"
	"time"
)

// Order represents a customer order created at checkout. The merchant
// reference is the join key echoed back by the payment gateway.
type Order struct {
	ID                 int64          `db:"id" json:"id"`
	UserID             int64          `db:"user_id" json:"user_id"`
	MerchantReference  string         `db:"merchant_reference" json:"merchant_reference"`
	TotalAmount        int64          `db:"total_amount" json:"total_amount"`
	PaidAmount         int64          `db:"paid_amount" json:"paid_amount"`
	Status             string         `db:"status" json:"status"`
	PaymentStatus      string         `db:"payment_status" json:"payment_status"`
	FailureReason      sql.NullString `db:"failure_reason" json:"failure_reason,omitempty"`
	PaymentCompletedAt sql.NullTime   `db:"payment_completed_at" json:"payment_completed_at,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// PaymentRecord holds the last gateway-reported state for an order, one row
// per merchant reference. The raw gateway status is stored unnormalized.
type PaymentRecord struct {
	ID                int64          `db:"id" json:"id"`
	MerchantReference string         `db:"merchant_reference" json:"merchant_reference"`
	Status            string         `db:"status" json:"status"`
	CallbackPayload   string         `db:"callback_payload" json:"callback_payload,omitempty"`
	FailureCode       sql.NullString `db:"failure_code" json:"failure_code,omitempty"`
	FailureMessage    sql.NullString `db:"failure_message" json:"failure_message,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// CallbackAudit is the append-only transaction log: one entry per received
// callback, carrying the raw inbound payload and the resolved outcome.
type CallbackAudit struct {
	ID                int64     `db:"id" json:"id"`
	MerchantReference string    `db:"merchant_reference" json:"merchant_reference"`
	Outcome           string    `db:"outcome" json:"outcome"`
	RawPayload        string    `db:"raw_payload" json:"raw_payload"`
	ReceivedAt        time.Time `db:"received_at" json:"received_at"`
}

// Notification records a customer-facing notification produced from a
// payment outcome event.
type Notification struct {
	ID                int64     `db:"id" json:"id"`
	MerchantReference string    `db:"merchant_reference" json:"merchant_reference"`
	Kind              string    `db:"kind" json:"kind"`
	Body              string    `db:"body" json:"body"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Order / payment statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Callback audit outcomes
const (
	AuditOutcomeApplied       = "applied"
	AuditOutcomeDuplicate     = "duplicate"
	AuditOutcomeConflict      = "conflict_ignored"
	AuditOutcomeHashMismatch  = "hash_mismatch"
	AuditOutcomeOrderNotFound = "order_not_found"
	AuditOutcomeMalformed     = "malformed"
)

// IsTerminalPaymentStatus reports whether a payment status can no longer
// change. Terminal state is never overwritten by a later callback.
func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentStatusCompleted || status == PaymentStatusFailed
}

// ProcessedEvent for consumer-side event dedupe
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
