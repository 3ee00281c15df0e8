package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
	"github.com/akarpov/go-shop/internal/session"
)

// ProductGetter is what the cart needs from the catalog: current price and
// stock for a single product.
type ProductGetter interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CartService owns cart mutations. The cart itself is a plain value held in
// the session store; every mutation loads it, applies the change in memory
// and writes the whole cart back.
type CartService struct {
	sessions session.Store
	products ProductGetter
}

func NewCartService(sessions session.Store, products ProductGetter) *CartService {
	return &CartService{
		sessions: sessions,
		products: products,
	}
}

// GetCart returns the session's cart with a live product snapshot attached to
// each line for display. A missing session yields an empty cart. Lines whose
// product has since been deleted keep a nil snapshot.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		product, errGet := s.products.GetProduct(ctx, cart.Items[i].ProductID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrProductNotFound) {
				continue
			}
			return nil, errGet
		}
		cart.Items[i].Product = product
	}

	return cart, nil
}

// AddItem validates the product and its current stock, then merges the line
// into the session cart. The stock check here is advisory only; the binding
// check happens again at order placement time.
func (s *CartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (*domain.Cart, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.StockQuantity < quantity {
		return nil, fmt.Errorf("%w for %s", repository.ErrInsufficientStock, product.Name)
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.AddItem(productID, quantity)

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. Zero or negative
// removes the line, matching the cart semantics.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity > 0 {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if product.StockQuantity < quantity {
			return nil, fmt.Errorf("%w for %s", repository.ErrInsufficientStock, product.Name)
		}
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.UpdateQuantity(productID, quantity)

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(productID)

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearCart empties the session cart. Clearing an already-empty cart is a
// no-op that still succeeds.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	return s.saveCart(ctx, sessionID, domain.NewCart())
}

func (s *CartService) loadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return domain.NewCart(), nil
	}
	if err != nil {
		log.Printf("session get error: %v \n", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return cart, nil
}

func (s *CartService) saveCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	// Snapshots are a display projection; persist only product_id + quantity.
	stripped := domain.Cart{Items: make([]domain.CartItem, len(cart.Items))}
	for i, item := range cart.Items {
		stripped.Items[i] = domain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	if err := s.sessions.Set(ctx, sessionID, &stripped); err != nil {
		log.Printf("session set error: %v \n", err)
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}
