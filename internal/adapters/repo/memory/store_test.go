package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storeadmin/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestStore_CommitAndRollback(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithinTx(ctx, domain.TxOptions{}, func(ctx context.Context, tx domain.IngestTx) error {
		_, err := tx.UpsertProduct(ctx, &domain.Product{SKU: "P1", Name: "Widget", Category: "Tools"})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, domain.TxOptions{}, func(ctx context.Context, tx domain.IngestTx) error {
		_, err := tx.UpsertProduct(ctx, &domain.Product{SKU: "P1", Name: "Cambiado", Category: "Tools"})
		require.NoError(t, err)
		_, err = tx.UpsertProduct(ctx, &domain.Product{SKU: "P2", Name: "Gadget", Category: "Tools"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Products)
	p, err := s.Products().FindBySKU(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
}

func TestStore_UpsertClientByEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	var firstID uuid.UUID

	err := s.WithinTx(ctx, domain.TxOptions{}, func(ctx context.Context, tx domain.IngestTx) error {
		a := &domain.Client{Email: strPtr("Ana@X.com"), Name: "Ana", Country: "CR"}
		isNew, err := tx.UpsertClient(ctx, a)
		require.NoError(t, err)
		assert.True(t, isNew)
		firstID = a.ID

		b := &domain.Client{ID: uuid.New(), Email: strPtr("ana@x.com"), Name: "Ana B", Country: "PA"}
		isNew, err = tx.UpsertClient(ctx, b)
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, firstID, b.ID)

		found, err := tx.FindClientByEmail(ctx, " ANA@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Ana B", found.Name)
		return nil
	})
	require.NoError(t, err)

	list, total, err := s.Clients().List(ctx, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, firstID, list[0].ID)
	assert.Equal(t, "ana@x.com", *list[0].Email)
}

func TestStore_AcquireTimeout(t *testing.T) {
	s := New()
	hold := make(chan struct{})
	inside := make(chan struct{})
	go func() {
		_ = s.WithinTx(context.Background(), domain.TxOptions{}, func(context.Context, domain.IngestTx) error {
			close(inside)
			<-hold
			return nil
		})
	}()
	<-inside

	err := s.WithinTx(context.Background(), domain.TxOptions{AcquireTimeout: 10 * time.Millisecond}, func(context.Context, domain.IngestTx) error {
		t.Fatal("no debería ejecutarse")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrTxAcquireTimeout)
	close(hold)
}

func TestStore_TxTimeoutDiscardsWork(t *testing.T) {
	s := New()
	err := s.WithinTx(context.Background(), domain.TxOptions{Timeout: 10 * time.Millisecond}, func(ctx context.Context, tx domain.IngestTx) error {
		<-ctx.Done()
		_, err := tx.UpsertProduct(ctx, &domain.Product{SKU: "P1"})
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	c, _ := s.Counts(context.Background())
	assert.Zero(t, c.Products)
}

func TestRepos_ListAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithinTx(ctx, domain.TxOptions{}, func(ctx context.Context, tx domain.IngestTx) error {
		for _, p := range []domain.Product{
			{SKU: "A", Name: "Martillo", Category: "Herramientas"},
			{SKU: "B", Name: "Clavos", Category: "Herramientas"},
			{SKU: "C", Name: "Lámpara", Category: "Hogar"},
		} {
			if _, err := tx.UpsertProduct(ctx, &p); err != nil {
				return err
			}
		}
		cl := &domain.Client{Name: "Ana", Country: "CR"}
		if _, err := tx.UpsertClient(ctx, cl); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			o := &domain.Order{ClientID: cl.ID, Channel: "WEB", Currency: "CRC", Total: decimal.NewFromInt(int64(i + 1)), Date: time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC)}
			if err := tx.CreateOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}))

	list, total, err := s.Products().List(ctx, domain.ProductFilter{Category: "Herramientas"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Clavos", list[0].Name)

	list, total, err = s.Products().List(ctx, domain.ProductFilter{Query: "hogar"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "C", list[0].SKU)

	cats, err := s.Products().DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Herramientas", "Hogar"}, cats)

	orders, total, err := s.Orders().List(ctx, domain.Page{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(1)))

	_, err = s.Orders().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_RegisteredAtOnlyDefaultsOnCreate(t *testing.T) {
	s := New()
	ctx := context.Background()
	since := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	upsert := func(c *domain.Client) {
		require.NoError(t, s.WithinTx(ctx, domain.TxOptions{}, func(ctx context.Context, tx domain.IngestTx) error {
			_, err := tx.UpsertClient(ctx, c)
			return err
		}))
	}
	upsert(&domain.Client{Email: strPtr("ana@x.com"), Name: "Ana", Country: "CR", RegisteredAt: since})
	upsert(&domain.Client{Email: strPtr("ana@x.com"), Name: "Ana B", Country: "CR"})

	ana, err := s.Clients().FindByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana B", ana.Name)
	assert.True(t, since.Equal(ana.RegisteredAt))

	nuevo := &domain.Client{Name: "Sin fecha", Country: "CR"}
	upsert(nuevo)
	assert.False(t, nuevo.RegisteredAt.IsZero())
}
