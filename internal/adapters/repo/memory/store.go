package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storeadmin/internal/domain"
)

// Store guarda todo en memoria. Admite una transacción de ingesta a la vez:
// trabaja sobre una copia de los datos y la publica solo si fn termina bien.
type Store struct {
	slot chan struct{}
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

type dataset struct {
	clients  []domain.Client
	products []domain.Product
	orders   []domain.Order
	lines    []domain.OrderLine
}

func (d *dataset) clone() *dataset {
	return &dataset{
		clients:  append([]domain.Client(nil), d.clients...),
		products: append([]domain.Product(nil), d.products...),
		orders:   append([]domain.Order(nil), d.orders...),
		lines:    append([]domain.OrderLine(nil), d.lines...),
	}
}

func New() *Store {
	return &Store{slot: make(chan struct{}, 1), data: &dataset{}, now: time.Now}
}

func (s *Store) WithinTx(ctx context.Context, opts domain.TxOptions, fn func(ctx context.Context, tx domain.IngestTx) error) error {
	acq, cancelAcq := ctx, context.CancelFunc(func() {})
	if opts.AcquireTimeout > 0 {
		acq, cancelAcq = context.WithTimeout(ctx, opts.AcquireTimeout)
	}
	select {
	case s.slot <- struct{}{}:
		cancelAcq()
	case <-acq.Done():
		cancelAcq()
		if err := ctx.Err(); err != nil {
			return err
		}
		return domain.ErrTxAcquireTimeout
	}
	defer func() { <-s.slot }()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{d: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

func (s *Store) Counts(ctx context.Context) (domain.EntityCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.EntityCounts{
		Clients:    int64(len(s.data.clients)),
		Products:   int64(len(s.data.products)),
		Orders:     int64(len(s.data.orders)),
		OrderLines: int64(len(s.data.lines)),
	}, nil
}

func (s *Store) Clients() *ClientRepo   { return &ClientRepo{s: s} }
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }
func (s *Store) Orders() *OrderRepo     { return &OrderRepo{s: s} }

type tx struct {
	d   *dataset
	now func() time.Time
}

func (t *tx) UpsertClient(ctx context.Context, c *domain.Client) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := t.now()
	if k := c.EmailKey(); k != "" {
		for i := range t.d.clients {
			if t.d.clients[i].EmailKey() == k {
				ex := &t.d.clients[i]
				ex.Name, ex.Gender, ex.Country = c.Name, c.Gender, c.Country
				if !c.RegisteredAt.IsZero() {
					ex.RegisteredAt = c.RegisteredAt
				}
				ex.UpdatedAt = now
				*c = *ex
				return false, nil
			}
		}
		c.Email = &k
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = now
	}
	c.CreatedAt, c.UpdatedAt = now, now
	t.d.clients = append(t.d.clients, *c)
	return true, nil
}

func (t *tx) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findClient(t.d, email)
}

func (t *tx) UpsertProduct(ctx context.Context, p *domain.Product) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := t.now()
	for i := range t.d.products {
		if t.d.products[i].SKU == p.SKU {
			ex := &t.d.products[i]
			ex.Name, ex.Category, ex.UpdatedAt = p.Name, p.Category, now
			*p = *ex
			return false, nil
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	t.d.products = append(t.d.products, *p)
	return true, nil
}

func (t *tx) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findProduct(t.d, sku)
}

func (t *tx) CreateOrder(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = t.now()
	row := *o
	row.Lines = nil
	t.d.orders = append(t.d.orders, row)
	return nil
}

func (t *tx) CreateOrderLine(ctx context.Context, l *domain.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = t.now()
	t.d.lines = append(t.d.lines, *l)
	return nil
}

func findClient(d *dataset, email string) (*domain.Client, error) {
	k := domain.NormalizeEmail(email)
	if k == "" {
		return nil, domain.ErrNotFound
	}
	for i := range d.clients {
		if d.clients[i].EmailKey() == k {
			c := d.clients[i]
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func findProduct(d *dataset, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	for i := range d.products {
		if d.products[i].SKU == sku {
			p := d.products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) snapshot() *dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

type ClientRepo struct{ s *Store }

func (r *ClientRepo) List(ctx context.Context, p domain.Page) ([]domain.Client, int64, error) {
	d := r.s.snapshot()
	list := append([]domain.Client(nil), d.clients...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return paginate(list, p), int64(len(list)), nil
}

func (r *ClientRepo) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return findClient(r.s.snapshot(), email)
}

type ProductRepo struct{ s *Store }

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	d := r.s.snapshot()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	list := []domain.Product{}
	for _, p := range d.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Category+" "+p.SKU), q) {
			continue
		}
		list = append(list, p)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return paginate(list, domain.Page{Page: f.Page, PageSize: f.PageSize}), int64(len(list)), nil
}

func (r *ProductRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return findProduct(r.s.snapshot(), sku)
}

func (r *ProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	cats := []string{}
	for _, p := range r.s.snapshot().products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		cats = append(cats, p.Category)
	}
	sort.Strings(cats)
	return cats, nil
}

type OrderRepo struct{ s *Store }

func (r *OrderRepo) List(ctx context.Context, p domain.Page) ([]domain.Order, int64, error) {
	d := r.s.snapshot()
	list := append([]domain.Order(nil), d.orders...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return paginate(list, p), int64(len(list)), nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	d := r.s.snapshot()
	for _, o := range d.orders {
		if o.ID != id {
			continue
		}
		for _, l := range d.lines {
			if l.OrderID == id {
				o.Lines = append(o.Lines, l)
			}
		}
		return &o, nil
	}
	return nil, domain.ErrNotFound
}

func paginate[T any](list []T, p domain.Page) []T {
	p = p.Normalize()
	off := p.Offset()
	if off >= len(list) {
		return []T{}
	}
	end := off + p.PageSize
	if end > len(list) {
		end = len(list)
	}
	return list[off:end]
}
