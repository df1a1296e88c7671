package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type OrdersHandler struct {
	logger *slog.Logger
}

type confirmOrderRequest struct {
	OrderID string `json:"order_id"`
}

type confirmOrderResponse struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func NewOrdersHandler(logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{logger: logger}
}

// ConfirmOrder acknowledges that an order exists and is payable. The payload
// is intentionally small; the payments service only cares that the call
// completed.
func (h *OrdersHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req confirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	h.logger.Info("Confirming order", slog.String("order_id", req.OrderID))

	res := confirmOrderResponse{
		OrderID:     req.OrderID,
		Status:      "CONFIRMED",
		ConfirmedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func setupRouter(ordersHandler *OrdersHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders/confirm", ordersHandler.ConfirmOrder)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
