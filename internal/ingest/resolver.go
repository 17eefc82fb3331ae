package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/storeadmin/internal/domain"
)

// Resolver traduce claves naturales a ids durante la carga de un lote. Vive
// lo que dura una llamada a Loader.Load y no se comparte entre lotes.
type Resolver struct {
	tx       domain.IngestTx
	clients  map[string]uuid.UUID
	products map[string]uuid.UUID
	orders   map[int]uuid.UUID
}

func NewResolver(tx domain.IngestTx) *Resolver {
	return &Resolver{
		tx:       tx,
		clients:  map[string]uuid.UUID{},
		products: map[string]uuid.UUID{},
		orders:   map[int]uuid.UUID{},
	}
}

func (r *Resolver) RememberClient(email string, id uuid.UUID) {
	if k := domain.NormalizeEmail(email); k != "" {
		r.clients[k] = id
	}
}

func (r *Resolver) RememberProduct(sku string, id uuid.UUID) {
	r.products[strings.TrimSpace(sku)] = id
}

func (r *Resolver) RememberOrder(index int, id uuid.UUID) {
	r.orders[index] = id
}

// ResolveClient busca primero en el lote y después en el store.
func (r *Resolver) ResolveClient(ctx context.Context, email string) (uuid.UUID, error) {
	k := domain.NormalizeEmail(email)
	if id, ok := r.clients[k]; ok {
		return id, nil
	}
	c, err := r.tx.FindClientByEmail(ctx, k)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, &Error{Kind: KindReference, Entity: "Client", Key: "email", Value: k}
		}
		return uuid.Nil, storeError("buscando cliente", err)
	}
	r.clients[k] = c.ID
	return c.ID, nil
}

func (r *Resolver) ResolveProduct(ctx context.Context, sku string) (uuid.UUID, error) {
	k := strings.TrimSpace(sku)
	if id, ok := r.products[k]; ok {
		return id, nil
	}
	p, err := r.tx.FindProductBySKU(ctx, k)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, &Error{Kind: KindReference, Entity: "Product", Key: "sku", Value: k}
		}
		return uuid.Nil, storeError("buscando producto", err)
	}
	r.products[k] = p.ID
	return p.ID, nil
}

// ResolveOrder solo mira las órdenes creadas en este lote.
func (r *Resolver) ResolveOrder(index int) (uuid.UUID, error) {
	if id, ok := r.orders[index]; ok {
		return id, nil
	}
	return uuid.Nil, &Error{Kind: KindReference, Entity: "Order", Key: "index", Value: strconv.Itoa(index)}
}
