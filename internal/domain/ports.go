package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TxOptions limita la duración de una transacción de ingesta y el tiempo
// máximo para obtener una conexión cuando hay contención.
type TxOptions struct {
	Timeout        time.Duration
	AcquireTimeout time.Duration
}

type IngestStore interface {
	WithinTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx IngestTx) error) error
}

// IngestTx son las operaciones disponibles dentro de una transacción de ingesta.
// Los Upsert devuelven true cuando la fila se creó; si se actualizó una fila
// existente, dejan en el argumento el ID almacenado.
type IngestTx interface {
	UpsertClient(ctx context.Context, c *Client) (bool, error)
	FindClientByEmail(ctx context.Context, email string) (*Client, error)
	UpsertProduct(ctx context.Context, p *Product) (bool, error)
	FindProductBySKU(ctx context.Context, sku string) (*Product, error)
	CreateOrder(ctx context.Context, o *Order) error
	CreateOrderLine(ctx context.Context, l *OrderLine) error
}

type ClientRepo interface {
	List(ctx context.Context, p Page) ([]Client, int64, error)
	FindByEmail(ctx context.Context, email string) (*Client, error)
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

type OrderRepo interface {
	List(ctx context.Context, p Page) ([]Order, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}

type EntityCounts struct {
	Clients    int64 `json:"clients"`
	Products   int64 `json:"products"`
	Orders     int64 `json:"orders"`
	OrderLines int64 `json:"order_lines"`
}

type Counter interface {
	Counts(ctx context.Context) (EntityCounts, error)
}

type IngestionEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Source     string    `json:"source"`
	Clients    int       `json:"clients"`
	Products   int       `json:"products"`
	Orders     int       `json:"orders"`
	OrderLines int       `json:"order_lines"`
	At         time.Time `json:"at"`
}

type EventPublisher interface {
	PublishIngestion(ctx context.Context, ev IngestionEvent) error
}
