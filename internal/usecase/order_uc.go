package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/phenrril/storeadmin/internal/domain"
)

type OrderUC struct {
	Orders domain.OrderRepo
}

func (uc *OrderUC) List(ctx context.Context, p domain.Page) ([]domain.Order, int64, error) {
	return uc.Orders.List(ctx, p.Normalize())
}

// Get devuelve la orden con sus detalles.
func (uc *OrderUC) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if id == uuid.Nil {
		return nil, errors.New("order id")
	}
	return uc.Orders.FindByID(ctx, id)
}
