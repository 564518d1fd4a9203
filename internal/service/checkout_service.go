package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"payment-service/internal/broker"
	"payment-service/internal/gateway"
	"payment-service/internal/models"
	"payment-service/internal/redisclient"
	"payment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutStore is the slice of the order store checkout consumes.
type CheckoutStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error
	GetOrderByReference(ctx context.Context, merchantRef string) (*models.Order, error)
	GetPaymentRecordByReference(ctx context.Context, merchantRef string) (*models.PaymentRecord, error)
}

// CheckoutService creates the order and payment rows the gateway callback
// later resolves.
type CheckoutService struct {
	store          CheckoutStore
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	verifier       *gateway.Verifier
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	st CheckoutStore,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	verifier *gateway.Verifier,
) *CheckoutService {
	return &CheckoutService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		verifier:       verifier,
		logger:         util.GetLogger(),
	}
}

// CreateCheckoutRequest represents a checkout submission
type CreateCheckoutRequest struct {
	UserID      int64 `json:"user_id" binding:"required"`
	TotalAmount int64 `json:"total_amount" binding:"required,min=1"`
}

// CreateCheckoutResponse carries the merchant reference and the gateway
// token the storefront forwards to the hosted payment page.
type CreateCheckoutResponse struct {
	OrderID           int64  `json:"order_id"`
	MerchantReference string `json:"merchant_reference"`
	Status            string `json:"status"`
	Token             string `json:"token"`
}

// CreateCheckout creates a pending order with a fresh merchant reference
// and its pending payment record.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CreateCheckoutRequest) (*CreateCheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCheckout")
	defer span.End()

	// Merchant references must be unique and immutable; the gateway echoes
	// them back verbatim, so keep them short and opaque.
	merchantRef := "IN" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])

	order := &models.Order{
		UserID:            req.UserID,
		MerchantReference: merchantRef,
		TotalAmount:       req.TotalAmount,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	record := &models.PaymentRecord{
		MerchantReference: merchantRef,
		Status:            models.PaymentStatusPending,
	}
	if err := s.store.CreatePaymentRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("merchant_reference", merchantRef))

	if s.eventPublisher != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCreated,
				Timestamp: time.Now(),
			},
			OrderID:           order.ID,
			UserID:            order.UserID,
			MerchantReference: merchantRef,
			TotalAmount:       order.TotalAmount,
		}
		if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	// Token over the pending state, same HMAC construction the callback
	// verifies later.
	token := s.verifier.Sign(merchantRef, models.PaymentStatusPending,
		strconv.FormatInt(req.TotalAmount, 10))

	return &CreateCheckoutResponse{
		OrderID:           order.ID,
		MerchantReference: merchantRef,
		Status:            order.Status,
		Token:             token,
	}, nil
}

// GetOrder retrieves an order and its payment record by merchant reference
func (s *CheckoutService) GetOrder(ctx context.Context, merchantRef string) (*models.Order, *models.PaymentRecord, error) {
	order, err := s.store.GetOrderByReference(ctx, merchantRef)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.store.GetPaymentRecordByReference(ctx, merchantRef)
	if err != nil {
		return nil, nil, err
	}

	return order, record, nil
}

// GetOrderStatus returns the payment status for the storefront's polling
// page, served from the Redis cache when warm.
func (s *CheckoutService) GetOrderStatus(ctx context.Context, merchantRef string) (string, error) {
	if s.redis != nil {
		cached, err := s.redis.GetCachedOrderStatus(ctx, merchantRef)
		if err != nil {
			s.logger.Warn("Order status cache read failed",
				zap.String("merchant_reference", merchantRef),
				zap.Error(err))
		} else if cached != "" {
			return cached, nil
		}
	}

	order, err := s.store.GetOrderByReference(ctx, merchantRef)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		if err := s.redis.CacheOrderStatus(ctx, merchantRef, order.PaymentStatus, 30*time.Second); err != nil {
			s.logger.Warn("Order status cache write failed", zap.Error(err))
		}
	}

	return order.PaymentStatus, nil
}
