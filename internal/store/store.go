package store

import (
	"context"
	"fmt"
	"time"

	"payment-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity, for readiness probes
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertCallbackAudit appends one transaction-log entry outside of any order
// transaction. Used for callbacks rejected before any state change.
func (s *Store) InsertCallbackAudit(ctx context.Context, audit *models.CallbackAudit) error {
	query := `
		INSERT INTO callback_audit (merchant_reference, outcome, raw_payload)
		VALUES ($1, $2, $3)
		RETURNING id, received_at`

	return s.db.GetContext(ctx, audit, query,
		audit.MerchantReference, audit.Outcome, audit.RawPayload)
}

// GetCallbackAudits retrieves the audit trail for a merchant reference,
// newest first.
func (s *Store) GetCallbackAudits(ctx context.Context, merchantRef string) ([]models.CallbackAudit, error) {
	var audits []models.CallbackAudit
	err := s.db.SelectContext(ctx, &audits,
		"SELECT * FROM callback_audit WHERE merchant_reference = $1 ORDER BY received_at DESC", merchantRef)
	return audits, err
}

// InsertNotification records a customer notification
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (merchant_reference, kind, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query, n.MerchantReference, n.Kind, n.Body)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
