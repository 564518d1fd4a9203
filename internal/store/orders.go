package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payment-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrOrderNotFound is returned when no order matches a merchant reference.
var ErrOrderNotFound = errors.New("order not found")

// PaymentOutcome carries the resolved result of a verified gateway callback.
type PaymentOutcome struct {
	MerchantReference string
	Succeeded         bool
	PaidAmount        int64
	RawStatus         string
	FailureCode       string
	FailureMessage    string
	RawPayload        string
}

// ApplyResult reports what the outcome transaction actually did.
type ApplyResult struct {
	Order   *models.Order
	Outcome string // models.AuditOutcomeApplied | Duplicate | Conflict
}

// CreateOrder creates a new pending order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, merchant_reference, total_amount, status, payment_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.UserID, order.MerchantReference, order.TotalAmount, order.Status, order.PaymentStatus)
}

// GetOrderByReference retrieves an order by merchant reference
func (s *Store) GetOrderByReference(ctx context.Context, merchantRef string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE merchant_reference = $1", merchantRef)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreatePaymentRecord creates the pending payment record for a new order
func (s *Store) CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (merchant_reference, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, record, query,
		record.MerchantReference, record.Status)
}

// GetPaymentRecordByReference retrieves the payment record for an order
func (s *Store) GetPaymentRecordByReference(ctx context.Context, merchantRef string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := s.db.GetContext(ctx, &record,
		"SELECT * FROM payment_records WHERE merchant_reference = $1", merchantRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment record not found: %s", merchantRef)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ApplyPaymentOutcome applies a verified callback outcome to the order and
// its payment record as a single transaction. The order row is locked for
// the duration (FOR UPDATE), which serializes concurrent callbacks for the
// same merchant reference without blocking other orders.
//
// A terminal payment status is never overwritten: a repeat of the same
// outcome is a no-op (duplicate), a different outcome is ignored (first
// terminal state wins). The audit entry is inserted in the same transaction
// so it never claims an outcome that did not commit.
func (s *Store) ApplyPaymentOutcome(ctx context.Context, outcome *PaymentOutcome) (*ApplyResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE merchant_reference = $1 FOR UPDATE", outcome.MerchantReference)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	target := models.PaymentStatusFailed
	if outcome.Succeeded {
		target = models.PaymentStatusCompleted
	}

	if models.IsTerminalPaymentStatus(order.PaymentStatus) {
		auditOutcome := models.AuditOutcomeDuplicate
		if order.PaymentStatus != target {
			auditOutcome = models.AuditOutcomeConflict
		}
		if err := insertAuditTx(ctx, tx, outcome, auditOutcome); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ApplyResult{Order: &order, Outcome: auditOutcome}, nil
	}

	if outcome.Succeeded {
		err = tx.GetContext(ctx, &order, `
			UPDATE orders
			SET payment_status = $1, status = $1, paid_amount = $2,
			    payment_completed_at = NOW(), updated_at = NOW()
			WHERE id = $3
			RETURNING *`,
			models.PaymentStatusCompleted, outcome.PaidAmount, order.ID)
	} else {
		err = tx.GetContext(ctx, &order, `
			UPDATE orders
			SET payment_status = $1, status = $1, failure_reason = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING *`,
			models.PaymentStatusFailed, outcome.FailureMessage, order.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	// insert-if-absent, else update: one conditional statement, no
	// read-then-write race
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_records (merchant_reference, status, callback_payload, failure_code, failure_message)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (merchant_reference) DO UPDATE
		SET status = EXCLUDED.status,
		    callback_payload = EXCLUDED.callback_payload,
		    failure_code = EXCLUDED.failure_code,
		    failure_message = EXCLUDED.failure_message,
		    updated_at = NOW()`,
		outcome.MerchantReference, outcome.RawStatus, outcome.RawPayload,
		outcome.FailureCode, outcome.FailureMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment record: %w", err)
	}

	if err := insertAuditTx(ctx, tx, outcome, models.AuditOutcomeApplied); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ApplyResult{Order: &order, Outcome: models.AuditOutcomeApplied}, nil
}

func insertAuditTx(ctx context.Context, tx *sqlx.Tx, outcome *PaymentOutcome, auditOutcome string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO callback_audit (merchant_reference, outcome, raw_payload) VALUES ($1, $2, $3)",
		outcome.MerchantReference, auditOutcome, outcome.RawPayload)
	if err != nil {
		return fmt.Errorf("failed to insert callback audit: %w", err)
	}
	return nil
}
