package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/models"
	"payment-service/internal/service"
	"payment-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "fixture-merchant-key"
	testSalt = "fixture-merchant-salt"
)

type stubOrderStore struct {
	order    *models.Order
	audits   int
	applyErr error
}

func (s *stubOrderStore) ApplyPaymentOutcome(ctx context.Context, outcome *store.PaymentOutcome) (*store.ApplyResult, error) {
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	if s.order == nil || s.order.MerchantReference != outcome.MerchantReference {
		return nil, store.ErrOrderNotFound
	}
	if models.IsTerminalPaymentStatus(s.order.PaymentStatus) {
		return &store.ApplyResult{Order: s.order, Outcome: models.AuditOutcomeDuplicate}, nil
	}
	target := models.PaymentStatusFailed
	if outcome.Succeeded {
		target = models.PaymentStatusCompleted
	}
	s.order.PaymentStatus = target
	s.order.Status = target
	s.order.PaidAmount = outcome.PaidAmount
	return &store.ApplyResult{Order: s.order, Outcome: models.AuditOutcomeApplied}, nil
}

func (s *stubOrderStore) InsertCallbackAudit(ctx context.Context, audit *models.CallbackAudit) error {
	s.audits++
	return nil
}

func newTestRouter(st *stubOrderStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	verifier := gateway.NewVerifier(testKey, testSalt)
	callbackService := service.NewCallbackService(st, nil, nil, verifier, 30*time.Second)

	router := gin.New()
	handler := NewHandler(callbackService, nil, nil)
	handler.SetupRoutes(router)
	return router
}

func postCallback(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/callback",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validForm(ref, status, amount string) url.Values {
	verifier := gateway.NewVerifier(testKey, testSalt)
	form := url.Values{}
	form.Set("merchant_oid", ref)
	form.Set("status", status)
	form.Set("total_amount", amount)
	form.Set("hash", verifier.Sign(ref, status, amount))
	return form
}

func TestPaymentCallbackAcknowledged(t *testing.T) {
	st := &stubOrderStore{order: &models.Order{
		ID:                1,
		MerchantReference: "IN123",
		PaymentStatus:     models.PaymentStatusPending,
		Status:            models.OrderStatusPending,
	}}
	router := newTestRouter(st)

	w := postCallback(router, validForm("IN123", "success", "10099"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, models.PaymentStatusCompleted, st.order.PaymentStatus)
	assert.Equal(t, int64(10099), st.order.PaidAmount)
}

func TestPaymentCallbackDuplicateStillAcknowledged(t *testing.T) {
	st := &stubOrderStore{order: &models.Order{
		ID:                1,
		MerchantReference: "IN123",
		PaymentStatus:     models.PaymentStatusCompleted,
		Status:            models.OrderStatusCompleted,
		PaidAmount:        10099,
	}}
	router := newTestRouter(st)

	w := postCallback(router, validForm("IN123", "success", "10099"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, int64(10099), st.order.PaidAmount)
}

func TestPaymentCallbackBadHash(t *testing.T) {
	st := &stubOrderStore{order: &models.Order{
		MerchantReference: "IN123",
		PaymentStatus:     models.PaymentStatusPending,
	}}
	router := newTestRouter(st)

	form := validForm("IN123", "success", "10099")
	form.Set("hash", "QUFBQUFBQUFBQUFBQUFBQQ==")

	w := postCallback(router, form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.PaymentStatusPending, st.order.PaymentStatus)
	assert.Equal(t, 1, st.audits)
}

func TestPaymentCallbackUnknownOrder(t *testing.T) {
	router := newTestRouter(&stubOrderStore{})

	w := postCallback(router, validForm("IN999", "success", "500"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentCallbackMissingField(t *testing.T) {
	st := &stubOrderStore{}
	router := newTestRouter(st)

	form := validForm("IN123", "success", "10099")
	form.Del("total_amount")

	w := postCallback(router, form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// rejected at parse time, before verification or any order work, but
	// the rejection itself still lands in the transaction log
	assert.Equal(t, 1, st.audits)
}

func TestPaymentCallbackStoreFailure(t *testing.T) {
	st := &stubOrderStore{
		order: &models.Order{
			MerchantReference: "IN123",
			PaymentStatus:     models.PaymentStatusPending,
		},
		applyErr: errors.New("connection reset by peer"),
	}
	router := newTestRouter(st)

	w := postCallback(router, validForm("IN123", "success", "10099"))

	// 5xx so the gateway's retry policy re-delivers.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, models.PaymentStatusPending, st.order.PaymentStatus)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(&stubOrderStore{})

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
