package service

import (
	"context"
	"testing"

	"payment-service/internal/gateway"
	"payment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckoutStore struct {
	orders  map[string]*models.Order
	records map[string]*models.PaymentRecord
}

func newFakeCheckoutStore() *fakeCheckoutStore {
	return &fakeCheckoutStore{
		orders:  make(map[string]*models.Order),
		records: make(map[string]*models.PaymentRecord),
	}
}

func (f *fakeCheckoutStore) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = int64(len(f.orders) + 1)
	f.orders[order.MerchantReference] = order
	return nil
}

func (f *fakeCheckoutStore) CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error {
	record.ID = int64(len(f.records) + 1)
	f.records[record.MerchantReference] = record
	return nil
}

func (f *fakeCheckoutStore) GetOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	return f.orders[ref], nil
}

func (f *fakeCheckoutStore) GetPaymentRecordByReference(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	return f.records[ref], nil
}

func TestCreateCheckout(t *testing.T) {
	st := newFakeCheckoutStore()
	verifier := gateway.NewVerifier(testKey, testSalt)
	cs := NewCheckoutService(st, nil, nil, verifier)

	resp, err := cs.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID:      42,
		TotalAmount: 10099,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.MerchantReference)
	assert.Equal(t, models.OrderStatusPending, resp.Status)

	order := st.orders[resp.MerchantReference]
	require.NotNil(t, order)
	assert.Equal(t, int64(42), order.UserID)
	assert.Equal(t, int64(10099), order.TotalAmount)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	record := st.records[resp.MerchantReference]
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentStatusPending, record.Status)

	// The gateway token uses the same HMAC construction the callback
	// verifier checks later, signed over the pending state.
	assert.True(t, verifier.Verify(resp.MerchantReference, models.PaymentStatusPending, "10099", resp.Token))
}

func TestCreateCheckoutReferencesUnique(t *testing.T) {
	st := newFakeCheckoutStore()
	cs := NewCheckoutService(st, nil, nil, gateway.NewVerifier(testKey, testSalt))

	first, err := cs.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: 1, TotalAmount: 500})
	require.NoError(t, err)
	second, err := cs.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: 1, TotalAmount: 500})
	require.NoError(t, err)

	assert.NotEqual(t, first.MerchantReference, second.MerchantReference)
}
