// Package persistence implements the restaurant service repositories.
package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// InMemoryRepository holds restaurants and the approvals recorded for them.
type InMemoryRepository struct {
	mu          sync.RWMutex
	restaurants map[string]domain.RestaurantInfo
	approvals   map[string]domain.OrderApproval
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		restaurants: make(map[string]domain.RestaurantInfo),
		approvals:   make(map[string]domain.OrderApproval),
	}
}

func (r *InMemoryRepository) AddRestaurant(info domain.RestaurantInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info.Products = slices.Clone(info.Products)
	r.restaurants[info.ID.String()] = info
}

func (r *InMemoryRepository) FindRestaurantInformation(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (domain.RestaurantInfo, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.restaurants[id.String()]
	if !ok {
		return domain.RestaurantInfo{}, false, nil
	}
	found := domain.RestaurantInfo{ID: info.ID, Active: info.Active}
	for _, p := range info.Products {
		if slices.Contains(productIDs, p.ID) {
			found.Products = append(found.Products, p)
		}
	}
	return found, true, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, approval domain.OrderApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.approvals[approval.ID] = approval
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.approvals, approval.ID)
	})
	return nil
}

// Approvals returns the decisions recorded for an order.
func (r *InMemoryRepository) Approvals(orderID types.OrderID) []domain.OrderApproval {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.OrderApproval
	for _, a := range r.approvals {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out
}

var (
	_ domain.RestaurantRepository    = (*InMemoryRepository)(nil)
	_ domain.OrderApprovalRepository = (*InMemoryRepository)(nil)
)
