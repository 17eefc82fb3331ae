package gormrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storeadmin/internal/domain"
)

type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// WithinTx reserva una conexión dedicada (esperando a lo sumo AcquireTimeout)
// y ejecuta fn en una transacción limitada por Timeout.
func (s *Store) WithinTx(ctx context.Context, opts domain.TxOptions, fn func(ctx context.Context, tx domain.IngestTx) error) error {
	acq, cancelAcq := ctx, context.CancelFunc(func() {})
	if opts.AcquireTimeout > 0 {
		acq, cancelAcq = context.WithTimeout(ctx, opts.AcquireTimeout)
	}
	txCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		txCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	acquired := false
	err := s.db.WithContext(acq).Connection(func(conn *gorm.DB) error {
		acquired = true
		cancelAcq()
		return conn.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
			return fn(txCtx, &ingestTx{db: tx})
		})
	})
	cancelAcq()
	if err != nil && !acquired && errors.Is(acq.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.ErrTxAcquireTimeout
	}
	return err
}

func (s *Store) Counts(ctx context.Context) (domain.EntityCounts, error) {
	var c domain.EntityCounts
	db := s.db.WithContext(ctx)
	if err := db.Model(&domain.Client{}).Count(&c.Clients).Error; err != nil {
		return c, err
	}
	if err := db.Model(&domain.Product{}).Count(&c.Products).Error; err != nil {
		return c, err
	}
	if err := db.Model(&domain.Order{}).Count(&c.Orders).Error; err != nil {
		return c, err
	}
	if err := db.Model(&domain.OrderLine{}).Count(&c.OrderLines).Error; err != nil {
		return c, err
	}
	return c, nil
}

type ingestTx struct{ db *gorm.DB }

func (t *ingestTx) UpsertClient(ctx context.Context, c *domain.Client) (bool, error) {
	db := t.db.WithContext(ctx)
	if k := c.EmailKey(); k != "" {
		c.Email = &k
		var existing domain.Client
		err := db.Where("LOWER(email) = ?", k).First(&existing).Error
		if err == nil {
			c.ID = existing.ID
			changes := map[string]any{
				"name":    c.Name,
				"gender":  c.Gender,
				"country": c.Country,
			}
			if !c.RegisteredAt.IsZero() {
				changes["registered_at"] = c.RegisteredAt
			}
			return false, db.Model(&existing).Updates(changes).Error
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = db.NowFunc()
	}
	return true, db.Create(c).Error
}

func (t *ingestTx) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return findClientByEmail(t.db.WithContext(ctx), email)
}

func (t *ingestTx) UpsertProduct(ctx context.Context, p *domain.Product) (bool, error) {
	db := t.db.WithContext(ctx)
	p.SKU = strings.TrimSpace(p.SKU)
	var existing domain.Product
	err := db.Where("sku = ?", p.SKU).First(&existing).Error
	if err == nil {
		p.ID = existing.ID
		return false, db.Model(&existing).Updates(map[string]any{"name": p.Name, "category": p.Category}).Error
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return true, db.Create(p).Error
}

func (t *ingestTx) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return findProductBySKU(t.db.WithContext(ctx), sku)
}

func (t *ingestTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Omit("Lines").Create(o).Error
}

func (t *ingestTx) CreateOrderLine(ctx context.Context, l *domain.OrderLine) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Create(l).Error
}
