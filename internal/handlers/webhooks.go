package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tokokita/api/internal/platform/httpx"
	"github.com/tokokita/api/internal/platform/observability"
	"github.com/tokokita/api/internal/services"
)

const maxNotificationBodySize = 256 * 1024

// WebhookHandlers receives asynchronous callbacks from external providers.
type WebhookHandlers struct {
	orders services.OrderService
}

// NewWebhookHandlers constructs handlers for the /webhooks group.
func NewWebhookHandlers(orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orders: orders}
}

// Routes wires the webhook endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/midtrans", h.midtransNotification)
}

type midtransNotificationRequest struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
}

// midtransNotification reconciles payment state from a Midtrans HTTP
// notification. Midtrans retries on any non-2xx response, so only transient
// failures return one.
func (h *WebhookHandlers) midtransNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}

	var req midtransNotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed notification payload", http.StatusBadRequest))
		return
	}

	notification := services.PaymentNotification{
		OrderID:           req.OrderID,
		TransactionStatus: req.TransactionStatus,
		FraudStatus:       req.FraudStatus,
	}

	if err := h.orders.ApplyPaymentNotification(ctx, notification); err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "notification is missing required fields", http.StatusBadRequest))
			return
		}
		observability.FromContext(ctx).Error("midtrans notification failed",
			zap.String("order_id", req.OrderID),
			zap.String("transaction_status", req.TransactionStatus),
			zap.Error(err),
		)
		httpx.WriteError(ctx, w, httpx.NewError("notification_failed", "failed to process notification", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
