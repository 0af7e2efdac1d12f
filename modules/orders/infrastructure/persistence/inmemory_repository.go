// Package persistence implements the order service repositories.
package persistence

import (
	"context"
	"sync"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// InMemoryRepository stores orders as snapshots so callers never share
// aggregate instances. Writes are undone when the memtx transaction fails.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Snapshot
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders: make(map[string]domain.Snapshot),
	}
}

func (r *InMemoryRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := order.ID().String()
	prev, exists := r.orders[key]
	if exists && prev.Version != order.Version() {
		return domain.ErrOrderConflict
	}
	if !exists && order.Version() != 0 {
		return domain.ErrOrderConflict
	}

	order.SetVersion(order.Version() + 1)
	r.orders[key] = order.Snapshot()

	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if exists {
			r.orders[key] = prev
		} else {
			delete(r.orders, key)
		}
	})
	return nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id types.OrderID) (*domain.Order, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.orders[id.String()]
	if !ok {
		return nil, false, nil
	}
	return domain.Reconstitute(s), true, nil
}

func (r *InMemoryRepository) FindByTrackingID(ctx context.Context, id types.TrackingID) (*domain.Order, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.orders {
		if s.TrackingID == id {
			return domain.Reconstitute(s), true, nil
		}
	}
	return nil, false, nil
}

// All returns every stored order.
func (r *InMemoryRepository) All() []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for _, s := range r.orders {
		out = append(out, domain.Reconstitute(s))
	}
	return out
}

// InMemoryCatalog serves the customer and restaurant read views.
type InMemoryCatalog struct {
	mu          sync.RWMutex
	customers   map[types.CustomerID]domain.Customer
	restaurants map[types.RestaurantID]domain.Restaurant
}

func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{
		customers:   make(map[types.CustomerID]domain.Customer),
		restaurants: make(map[types.RestaurantID]domain.Restaurant),
	}
}

func (c *InMemoryCatalog) AddCustomer(customer domain.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customers[customer.ID] = customer
}

func (c *InMemoryCatalog) AddRestaurant(restaurant domain.Restaurant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restaurants[restaurant.ID] = restaurant
}

func (c *InMemoryCatalog) FindCustomer(ctx context.Context, id types.CustomerID) (domain.Customer, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	customer, ok := c.customers[id]
	return customer, ok, nil
}

// FindRestaurant returns the restaurant with only the requested products.
func (c *InMemoryCatalog) FindRestaurant(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (domain.Restaurant, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.restaurants[id]
	if !ok {
		return domain.Restaurant{}, false, nil
	}
	wanted := make(map[types.ProductID]bool, len(productIDs))
	for _, pid := range productIDs {
		wanted[pid] = true
	}
	out := domain.Restaurant{ID: r.ID, Active: r.Active}
	for _, p := range r.Products {
		if wanted[p.ID] {
			out.Products = append(out.Products, p)
		}
	}
	return out, true, nil
}
