package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/akarpov/go-shop/internal/cache"
	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
	"github.com/akarpov/go-shop/internal/session"
)

type PlaceOrderRequest struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	IdempotencyKey  string
}

type PlaceOrderResult struct {
	OrderID   int64
	Total     float64
	Duplicate bool
}

// OrderService converts a session cart into a durable order. All validation
// happens before any write; the order, its items and the stock decrements
// commit in a single transaction inside the repository.
type OrderService struct {
	repo     repository.RepoInterface
	sessions session.Store
	cache    cache.ProductCache
}

func NewOrderService(repo repository.RepoInterface, sessions session.Store, cache cache.ProductCache) *OrderService {
	return &OrderService{
		repo:     repo,
		sessions: sessions,
		cache:    cache,
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, sessionID string, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	cart, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		cart = domain.NewCart()
	} else if err != nil {
		log.Printf("session get error: %v \n", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Validate every line against the live catalog before writing anything.
	// Stock is mutable between requests, so this re-checks even carts that
	// were validated at add time.
	var totalAmount float64
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, cartItem := range cart.Items {
		product, errGet := s.repo.GetProduct(ctx, cartItem.ProductID)
		if errGet != nil {
			return nil, errGet
		}

		if product.StockQuantity < cartItem.Quantity {
			return nil, fmt.Errorf("%w for %s", repository.ErrInsufficientStock, product.Name)
		}

		// Price captured here is used for both the total and the stored
		// item; later catalog price changes never touch this order.
		totalAmount += product.Price * float64(cartItem.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: cartItem.ProductID,
			Quantity:  cartItem.Quantity,
			Price:     product.Price,
		})
	}

	order := &domain.Order{
		TotalAmount:     totalAmount,
		Status:          domain.OrderStatusPending,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
	}

	orderID, err := s.repo.CreateOrder(ctx, order, items, req.IdempotencyKey)
	if errors.Is(err, repository.ErrDuplicateOrder) {
		existing, errGet := s.repo.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if errGet != nil {
			return nil, fmt.Errorf("fetch existing order for duplicate submission: %w", errGet)
		}

		// The submission was consumed by the original order; the resubmitted
		// cart is cleared the same way the success path clears it.
		s.clearCart(ctx, sessionID, existing.ID)
		return &PlaceOrderResult{
			OrderID:   existing.ID,
			Total:     existing.TotalAmount,
			Duplicate: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s.clearCart(ctx, sessionID, orderID)

	// The committed decrements made the cached product entries stale; drop
	// them so reads pick up the new stock before the TTL expires.
	for _, item := range items {
		if errDel := s.cache.Delete(ctx, item.ProductID); errDel != nil {
			log.Printf("failed to invalidate cached product %d after order %d: %v \n", item.ProductID, orderID, errDel)
		}
	}

	return &PlaceOrderResult{OrderID: orderID, Total: totalAmount}, nil
}

// clearCart empties the session cart after an order submission. The order is
// already committed at this point; a failure is logged, not returned.
func (s *OrderService) clearCart(ctx context.Context, sessionID string, orderID int64) {
	if errClear := s.sessions.Set(ctx, sessionID, domain.NewCart()); errClear != nil {
		log.Printf("failed to clear cart after order %d: %v \n", orderID, errClear)
	}
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, []domain.OrderItem, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.repo.GetOrderItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}
