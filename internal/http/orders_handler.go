package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderService is what the order handlers need from the service layer.
type OrderService interface {
	PlaceOrder(ctx context.Context, sessionID string, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, []domain.OrderItem, error)
}

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(orders OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type CreateOrderRequestDTO struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ShippingAddress string `json:"shipping_address"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

type CreateOrderResponseDTO struct {
	Message   string  `json:"message"`
	OrderID   int64   `json:"order_id"`
	Total     float64 `json:"total"`
	Duplicate bool    `json:"duplicate,omitempty"`
}

type OrderDetailResponseDTO struct {
	Order *domain.Order      `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusInternalServerError, "session_error", "missing session")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)

	if req.CustomerName == "" {
		respondError(w, http.StatusBadRequest, "invalid_customer_name", "customer_name is required")
		return
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_customer_email", "customer_email must be a valid email address")
		return
	}
	if req.ShippingAddress == "" {
		respondError(w, http.StatusBadRequest, "invalid_shipping_address", "shipping_address is required")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), sessionID, service.PlaceOrderRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	message := "Order created successfully"
	if result.Duplicate {
		status = http.StatusOK
		message = "Order already exists for this idempotency key"
	}

	respondJSON(w, status, CreateOrderResponseDTO{
		Message:   message,
		OrderID:   result.OrderID,
		Total:     result.Total,
		Duplicate: result.Duplicate,
	})
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderIDStr := chi.URLParam(r, "order_id")
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, items, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if items == nil {
		items = []domain.OrderItem{}
	}
	respondJSON(w, http.StatusOK, OrderDetailResponseDTO{Order: order, Items: items})
}
