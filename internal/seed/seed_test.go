package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-system/internal/domain"
	"cafe-system/internal/store"
)

func TestApplyPopulatesEmptyCollections(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, mem, zerolog.Nop()))

	products, err := mem.List(ctx, domain.ColProducts)
	require.NoError(t, err)
	assert.Len(t, products, 10)

	tables, err := mem.List(ctx, domain.ColTables)
	require.NoError(t, err)
	assert.Len(t, tables, 8)

	waiters, err := mem.List(ctx, domain.ColWaiters)
	require.NoError(t, err)
	assert.Len(t, waiters, 3)

	// Orders are never seeded.
	orders, err := mem.List(ctx, domain.ColOrders)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestApplyLeavesNonEmptyCollectionsAlone(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.RunTx(ctx, func(tx store.Tx) error {
		return tx.Put(ctx, domain.ColProducts, "custom", domain.Product{ID: "custom", Name: "Chá", Price: 4, Stock: 9})
	}))

	require.NoError(t, Apply(ctx, mem, zerolog.Nop()))

	products, err := mem.List(ctx, domain.ColProducts)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	// Other collections still get their defaults.
	tables, err := mem.List(ctx, domain.ColTables)
	require.NoError(t, err)
	assert.Len(t, tables, 8)
}

func TestApplyIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, Apply(ctx, mem, zerolog.Nop()))
	require.NoError(t, Apply(ctx, mem, zerolog.Nop()))

	products, err := mem.List(ctx, domain.ColProducts)
	require.NoError(t, err)
	assert.Len(t, products, 10)
}

func TestSeedProductsDecode(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, Apply(ctx, mem, zerolog.Nop()))

	docs, err := mem.List(ctx, domain.ColProducts)
	require.NoError(t, err)
	for _, d := range docs {
		p, repairs, err := domain.DecodeProduct(d.Data)
		require.NoError(t, err)
		assert.Empty(t, repairs)
		assert.NotEmpty(t, p.Name)
		assert.Greater(t, p.Price, 0.0)
		assert.Greater(t, p.Stock, 0)
	}
}
