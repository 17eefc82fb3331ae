package gormrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/phenrril/storeadmin/internal/domain"
)

type ClientRepo struct{ db *gorm.DB }

func NewClientRepo(db *gorm.DB) *ClientRepo { return &ClientRepo{db: db} }

func (r *ClientRepo) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return findClientByEmail(r.db.WithContext(ctx), email)
}

func (r *ClientRepo) List(ctx context.Context, p domain.Page) ([]domain.Client, int64, error) {
	p = p.Normalize()
	var list []domain.Client
	var total int64
	q := r.db.WithContext(ctx).Model(&domain.Client{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("name asc").Offset(p.Offset()).Limit(p.PageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func findClientByEmail(db *gorm.DB, email string) (*domain.Client, error) {
	var c domain.Client
	e := domain.NormalizeEmail(email)
	if e == "" {
		return nil, domain.ErrNotFound
	}
	if err := db.First(&c, "LOWER(email) = ?", e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
