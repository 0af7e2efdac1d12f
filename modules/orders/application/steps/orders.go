package steps

import (
	"context"
	"fmt"

	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

func findOrder(ctx context.Context, repo domain.OrderRepository, rawID string) (*domain.Order, error) {
	id, err := types.ParseOrderID(rawID)
	if err != nil {
		return nil, fmt.Errorf("order %q: %w", rawID, domain.ErrOrderNotFound)
	}
	order, ok, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	return order, nil
}
