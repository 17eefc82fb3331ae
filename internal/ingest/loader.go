package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/storeadmin/internal/domain"
)

const (
	DefaultTxTimeout        = 60 * time.Second
	DefaultTxAcquireTimeout = 10 * time.Second
)

type Counts struct {
	Clients    int `json:"clientesInsertados"`
	Products   int `json:"productosInsertados"`
	Orders     int `json:"ordenesInsertadas"`
	OrderLines int `json:"detallesInsertados"`
}

type Loader struct {
	store domain.IngestStore
	opts  domain.TxOptions
}

func NewLoader(store domain.IngestStore, opts domain.TxOptions) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTxTimeout
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultTxAcquireTimeout
	}
	return &Loader{store: store, opts: opts}
}

// Load ejecuta las cuatro etapas (clientes, productos, órdenes, detalles) en
// una sola transacción. Cualquier error revierte el lote completo.
func (l *Loader) Load(ctx context.Context, b *Batch) (Counts, error) {
	var counts Counts
	err := l.store.WithinTx(ctx, l.opts, func(ctx context.Context, tx domain.IngestTx) error {
		counts = Counts{}
		r := NewResolver(tx)
		stages := []func(context.Context, domain.IngestTx, *Resolver, *Batch, *Counts) error{
			loadClients, loadProducts, loadOrders, loadOrderLines,
		}
		for _, st := range stages {
			if err := st(ctx, tx, r, b, &counts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return Counts{}, err
		}
		if errors.Is(err, domain.ErrTxAcquireTimeout) {
			return Counts{}, storeError("no se pudo iniciar la transacción", err)
		}
		return Counts{}, storeError("error guardando el lote", err)
	}
	return counts, nil
}

func loadClients(ctx context.Context, tx domain.IngestTx, r *Resolver, b *Batch, n *Counts) error {
	created := 0
	for i := range b.Clients {
		c := b.Clients[i].Client
		isNew, err := tx.UpsertClient(ctx, &c)
		if err != nil {
			return &Error{Kind: KindStore, Sheet: string(EntityClient), Row: b.Clients[i].Index, Msg: "guardando cliente", Err: err}
		}
		if isNew {
			created++
		}
		r.RememberClient(c.EmailKey(), c.ID)
		n.Clients++
	}
	if n.Clients > 0 {
		log.Debug().Int("creados", created).Int("actualizados", n.Clients-created).Msg("clientes cargados")
	}
	return nil
}

func loadProducts(ctx context.Context, tx domain.IngestTx, r *Resolver, b *Batch, n *Counts) error {
	created := 0
	for i := range b.Products {
		p := b.Products[i].Product
		isNew, err := tx.UpsertProduct(ctx, &p)
		if err != nil {
			return &Error{Kind: KindStore, Sheet: string(EntityProduct), Row: b.Products[i].Index, Msg: "guardando producto", Err: err}
		}
		if isNew {
			created++
		}
		r.RememberProduct(p.SKU, p.ID)
		n.Products++
	}
	if n.Products > 0 {
		log.Debug().Int("creados", created).Int("actualizados", n.Products-created).Msg("productos cargados")
	}
	return nil
}

func loadOrders(ctx context.Context, tx domain.IngestTx, r *Resolver, b *Batch, n *Counts) error {
	for i := range b.Orders {
		row := b.Orders[i]
		clientID, err := r.ResolveClient(ctx, row.ClientEmail)
		if err != nil {
			return withRow(err, EntityOrder, row.Index)
		}
		o := row.Order
		o.ClientID = clientID
		if err := tx.CreateOrder(ctx, &o); err != nil {
			return &Error{Kind: KindStore, Sheet: string(EntityOrder), Row: row.Index, Msg: "guardando orden", Err: err}
		}
		r.RememberOrder(row.Index, o.ID)
		n.Orders++
	}
	return nil
}

func loadOrderLines(ctx context.Context, tx domain.IngestTx, r *Resolver, b *Batch, n *Counts) error {
	for i := range b.Lines {
		row := b.Lines[i]
		orderID, err := r.ResolveOrder(row.OrderIndex)
		if err != nil {
			return withRow(err, EntityOrderLine, row.Index)
		}
		productID, err := r.ResolveProduct(ctx, row.SKU)
		if err != nil {
			return withRow(err, EntityOrderLine, row.Index)
		}
		l := row.Line
		l.OrderID = orderID
		l.ProductID = productID
		if err := tx.CreateOrderLine(ctx, &l); err != nil {
			return &Error{Kind: KindStore, Sheet: string(EntityOrderLine), Row: row.Index, Msg: "guardando detalle", Err: err}
		}
		n.OrderLines++
	}
	return nil
}

func withRow(err error, sheet Entity, row int) error {
	var ie *Error
	if errors.As(err, &ie) && ie.Sheet == "" {
		ie.Sheet = string(sheet)
		ie.Row = row
	}
	return err
}
