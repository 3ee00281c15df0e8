package service

import (
	"context"
	"sync"

	"github.com/akarpov/go-shop/internal/cache"
	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
	"github.com/akarpov/go-shop/internal/session"
)

// mockSessionStore keeps carts in memory and hands out copies, matching the
// serialize/deserialize behavior of the real Redis store.
type mockSessionStore struct {
	m      sync.RWMutex
	carts  map[string]*domain.Cart
	getErr error
	setErr error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{carts: make(map[string]*domain.Cart)}
}

func (m *mockSessionStore) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[sessionID]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return copyCart(cart), nil
}

func (m *mockSessionStore) Set(_ context.Context, sessionID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.carts[sessionID] = copyCart(cart)
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func copyCart(cart *domain.Cart) *domain.Cart {
	cp := &domain.Cart{Items: make([]domain.CartItem, len(cart.Items))}
	copy(cp.Items, cart.Items)
	return cp
}

// mockRepo implements repository.RepoInterface. CreateOrder performs the
// conditional stock decrement under the mutex, mirroring the transactional
// guarantee of the Postgres implementation.
type mockRepo struct {
	m               sync.Mutex
	products        map[int64]*domain.Product
	orders          map[int64]*domain.Order
	orderItems      map[int64][]domain.OrderItem
	keys            map[string]int64
	nextOrderID     int64
	createOrderErr  error
	getProductCalls int
}

func newMockRepo(products ...*domain.Product) *mockRepo {
	r := &mockRepo{
		products:   make(map[int64]*domain.Product),
		orders:     make(map[int64]*domain.Order),
		orderItems: make(map[int64][]domain.OrderItem),
		keys:       make(map[string]int64),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *mockRepo) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.getProductCalls++
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *mockRepo) CreateOrder(_ context.Context, order *domain.Order, items []domain.OrderItem, idempotencyKey string) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.createOrderErr != nil {
		return 0, r.createOrderErr
	}
	if idempotencyKey != "" {
		if _, exists := r.keys[idempotencyKey]; exists {
			return 0, repository.ErrDuplicateOrder
		}
	}

	// All-or-nothing: validate every decrement before applying any.
	for _, item := range items {
		p, ok := r.products[item.ProductID]
		if !ok {
			return 0, repository.ErrProductNotFound
		}
		if p.StockQuantity < item.Quantity {
			return 0, repository.ErrInsufficientStock
		}
	}
	for _, item := range items {
		r.products[item.ProductID].StockQuantity -= item.Quantity
	}

	r.nextOrderID++
	stored := *order
	stored.ID = r.nextOrderID
	r.orders[stored.ID] = &stored
	r.orderItems[stored.ID] = items
	if idempotencyKey != "" {
		r.keys[idempotencyKey] = stored.ID
	}
	return stored.ID, nil
}

func (r *mockRepo) GetOrderByID(_ context.Context, id int64) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (r *mockRepo) GetOrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	id, ok := r.keys[key]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.orders[id], nil
}

func (r *mockRepo) GetOrderItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.orderItems[orderID], nil
}

func (r *mockRepo) ListOrders(_ context.Context) ([]*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	orders := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *mockRepo) GetAllProducts(_ context.Context) ([]*domain.Product, error) {
	r.m.Lock()
	defer r.m.Unlock()
	products := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	return products, nil
}

func (r *mockRepo) SearchProducts(context.Context, string) ([]*domain.Product, error) {
	return nil, nil
}

func (r *mockRepo) GetProductsByCategory(context.Context, int64) ([]*domain.Product, error) {
	return nil, nil
}

func (r *mockRepo) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.products[p.ID] = p
	return p, nil
}

func (r *mockRepo) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *mockRepo) DeleteProduct(_ context.Context, id int64) error {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *mockRepo) GetAllCategories(context.Context) ([]*domain.Category, error) { return nil, nil }
func (r *mockRepo) GetCategory(context.Context, int64) (*domain.Category, error) {
	return nil, repository.ErrCategoryNotFound
}
func (r *mockRepo) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	return c, nil
}
func (r *mockRepo) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	return c, nil
}
func (r *mockRepo) DeleteCategory(context.Context, int64) error { return nil }

func (r *mockRepo) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	return nil, nil
}
func (r *mockRepo) MarkEventAsProcessed(context.Context, int64) error { return nil }

func (r *mockRepo) RunMigrations(*repository.Credentials) error { return nil }
func (r *mockRepo) Close() error                                { return nil }

func (r *mockRepo) stockOf(id int64) int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.products[id].StockQuantity
}

func (r *mockRepo) orderCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return len(r.orders)
}

func (r *mockRepo) productCalls() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.getProductCalls
}

// mockProductCache is an in-memory stand-in for the Redis product cache.
type mockProductCache struct {
	m        sync.Mutex
	products map[int64]*domain.Product
	getErr   error
}

func newMockProductCache() *mockProductCache {
	return &mockProductCache{products: make(map[int64]*domain.Product)}
}

func (c *mockProductCache) Get(_ context.Context, id int64) (*domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	p, ok := c.products[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	cp := *p
	return &cp, nil
}

func (c *mockProductCache) Set(_ context.Context, p *domain.Product) error {
	c.m.Lock()
	defer c.m.Unlock()
	cp := *p
	c.products[cp.ID] = &cp
	return nil
}

func (c *mockProductCache) Delete(_ context.Context, id int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.products, id)
	return nil
}

func (c *mockProductCache) has(id int64) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.products[id]
	return ok
}

var _ repository.RepoInterface = (*mockRepo)(nil)
var _ session.Store = (*mockSessionStore)(nil)
var _ cache.ProductCache = (*mockProductCache)(nil)
