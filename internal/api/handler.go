package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/service"
	"payment-service/internal/store"
	"payment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	callbackService *service.CallbackService
	checkoutService *service.CheckoutService
	store           *store.Store
}

// NewHandler creates a new HTTP handler. store may be nil; readiness then
// reports ready without a connectivity check.
func NewHandler(callbackService *service.CallbackService, checkoutService *service.CheckoutService, st *store.Store) *Handler {
	return &Handler{
		callbackService: callbackService,
		checkoutService: checkoutService,
		store:           st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/payment/callback", h.paymentCallback)
		v1.POST("/checkout", h.createCheckout)
		v1.GET("/orders/:reference", h.getOrder)
		v1.GET("/orders/:reference/status", h.getOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// paymentCallback handles the gateway's server-to-server notification. The
// gateway retries on anything other than a 2xx with the literal body "OK",
// so only unauthenticated, unknown-order, or store-failure cases return
// error statuses.
func (h *Handler) paymentCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	// binding consumes the body, keep the verbatim copy for the audit trail
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var notification gateway.CallbackNotification
	if err := c.ShouldBind(&notification); err != nil {
		h.callbackService.RecordMalformedCallback(c.Request.Context(), notification.MerchantOID, string(body))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid callback payload",
			"details": err.Error(),
		})
		return
	}

	_, err = h.callbackService.ProcessCallback(c.Request.Context(), &notification, string(body))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHashMismatch), errors.Is(err, service.ErrMalformedAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Callback verification failed"})
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, service.ErrDeliveryInFlight):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Delivery in progress, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process callback"})
		}
		return
	}

	c.String(http.StatusOK, "OK")
}

// createCheckout handles checkout submissions
func (h *Handler) createCheckout(c *gin.Context) {
	var req service.CreateCheckoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.checkoutService.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by merchant reference
func (h *Handler) getOrder(c *gin.Context) {
	reference := c.Param("reference")

	order, record, err := h.checkoutService.GetOrder(c.Request.Context(), reference)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"payment": record,
	})
}

// getOrderStatus handles the storefront's payment status polling
func (h *Handler) getOrderStatus(c *gin.Context) {
	reference := c.Param("reference")

	status, err := h.checkoutService.GetOrderStatus(c.Request.Context(), reference)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_status": status})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
