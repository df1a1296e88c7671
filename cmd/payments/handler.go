package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/service-fabric/internal/client"
	"github.com/angeloszaimis/service-fabric/internal/invoker"
	"github.com/angeloszaimis/service-fabric/internal/metrics"
)

type PaymentsHandler struct {
	logger *slog.Logger
	fabric *client.Client
}

type paymentRequest struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

type paymentResponse struct {
	OrderID      string          `json:"order_id"`
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Confirmation json.RawMessage `json:"confirmation,omitempty"`
}

func NewPaymentsHandler(logger *slog.Logger, fabric *client.Client) *PaymentsHandler {
	return &PaymentsHandler{
		logger: logger,
		fabric: fabric,
	}
}

// CreatePayment confirms the order with the orders service before accepting
// the payment. When the orders service is unreachable the workflow continues
// degraded: the payment is acknowledged as pending retry, never dropped with
// an error.
func (h *PaymentsHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received payment",
		slog.String("order_id", req.OrderID),
		slog.Float64("amount", req.Amount))

	payload, err := json.Marshal(map[string]string{"order_id": req.OrderID})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := h.fabric.Call(r.Context(), ordersService, opConfirmOrder, invoker.Request{
		Method: http.MethodPost,
		Path:   "/orders/confirm",
		Body:   payload,
	})

	w.Header().Set("Content-Type", "application/json")

	if result.FromFallback {
		h.logger.Warn("Payment accepted degraded",
			slog.String("order_id", req.OrderID),
			slog.String("reason", string(result.Reason)))

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(paymentResponse{
			OrderID: req.OrderID,
			Status:  result.Fallback.Status,
			Message: result.Fallback.Message,
		})
		return
	}

	json.NewEncoder(w).Encode(paymentResponse{
		OrderID:      req.OrderID,
		Status:       "COMPLETED",
		Confirmation: result.Body,
	})
}

func setupRouter(paymentsHandler *PaymentsHandler, metricsCollector *metrics.Collector, selectorType string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /payments", paymentsHandler.CreatePayment)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler(selectorType))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
