package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/phenrril/storeadmin/internal/domain"
)

type ProductUC struct {
	Products domain.ProductRepo
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	s := strings.TrimSpace(sku)
	if s == "" {
		return nil, errors.New("sku vacío")
	}
	return uc.Products.FindBySKU(ctx, s)
}

func (uc *ProductUC) Categories(ctx context.Context) ([]string, error) {
	return uc.Products.DistinctCategories(ctx)
}

type ClientUC struct {
	Clients domain.ClientRepo
}

func (uc *ClientUC) List(ctx context.Context, p domain.Page) ([]domain.Client, int64, error) {
	return uc.Clients.List(ctx, p.Normalize())
}

func (uc *ClientUC) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	e := domain.NormalizeEmail(email)
	if e == "" {
		return nil, errors.New("email vacío")
	}
	return uc.Clients.FindByEmail(ctx, e)
}
