package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storeadmin/internal/domain"
)

// stubTx cuenta las búsquedas que llegan al store.
type stubTx struct {
	domain.IngestTx
	clients  map[string]uuid.UUID
	products map[string]uuid.UUID
	lookups  int
	fail     error
}

func (s *stubTx) FindClientByEmail(_ context.Context, email string) (*domain.Client, error) {
	s.lookups++
	if s.fail != nil {
		return nil, s.fail
	}
	if id, ok := s.clients[email]; ok {
		return &domain.Client{ID: id}, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubTx) FindProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.lookups++
	if s.fail != nil {
		return nil, s.fail
	}
	if id, ok := s.products[sku]; ok {
		return &domain.Product{ID: id, SKU: sku}, nil
	}
	return nil, domain.ErrNotFound
}

func TestResolver_InBatchFirst(t *testing.T) {
	tx := &stubTx{}
	r := NewResolver(tx)
	id := uuid.New()
	r.RememberClient(" Ana@X.com", id)

	got, err := r.ResolveClient(context.Background(), "ana@x.com ")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Zero(t, tx.lookups)
}

func TestResolver_StoreFallbackIsMemoized(t *testing.T) {
	pid := uuid.New()
	tx := &stubTx{products: map[string]uuid.UUID{"P9": pid}}
	r := NewResolver(tx)

	for i := 0; i < 3; i++ {
		got, err := r.ResolveProduct(context.Background(), "P9")
		require.NoError(t, err)
		assert.Equal(t, pid, got)
	}
	assert.Equal(t, 1, tx.lookups)
}

func TestResolver_NotFound(t *testing.T) {
	r := NewResolver(&stubTx{})

	_, err := r.ResolveClient(context.Background(), "nadie@x.com")
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindReference, ie.Kind)
	assert.Equal(t, "Client with email 'nadie@x.com' not found", ie.Error())

	_, err = r.ResolveProduct(context.Background(), "P404")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Product with sku 'P404' not found", ie.Error())

	_, err = r.ResolveOrder(3)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Order with index '3' not found", ie.Error())
}

func TestResolver_OrdersOnlyInBatch(t *testing.T) {
	tx := &stubTx{}
	r := NewResolver(tx)
	id := uuid.New()
	r.RememberOrder(2, id)

	got, err := r.ResolveOrder(2)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = r.ResolveOrder(1)
	assert.Equal(t, KindReference, KindOf(err))
	assert.Zero(t, tx.lookups)
}

func TestResolver_StoreErrors(t *testing.T) {
	boom := errors.New("conexión perdida")
	r := NewResolver(&stubTx{fail: boom})

	_, err := r.ResolveClient(context.Background(), "a@x.com")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, KindStore, KindOf(err))
}
