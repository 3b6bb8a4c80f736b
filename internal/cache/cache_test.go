package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-system/internal/domain"
	"cafe-system/internal/store"
)

func put(t *testing.T, mem *store.Memory, collection, id string, doc any) {
	t.Helper()
	require.NoError(t, mem.RunTx(context.Background(), func(tx store.Tx) error {
		return tx.Put(context.Background(), collection, id, doc)
	}))
}

func TestLoadSnapshotsAllCollections(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso", Price: 5, Stock: 10})
	put(t, mem, domain.ColTables, "t1", domain.Table{ID: "t1", Name: "Mesa 1", Status: domain.TableAvailable})
	put(t, mem, domain.ColWaiters, "w1", domain.Waiter{ID: "w1", Name: "João"})

	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	assert.Len(t, c.Products(), 1)
	assert.Len(t, c.Tables(), 1)
	assert.Len(t, c.Waiters(), 1)
	assert.Empty(t, c.Orders())
}

func TestApplyPutRefetchesDocument(t *testing.T) {
	mem := store.NewMemory()
	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso", Price: 5, Stock: 10})
	c.Apply(context.Background(), store.Event{Collection: domain.ColProducts, ID: "p1", Op: store.OpPut})

	products := c.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "Espresso", products[0].Name)

	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso", Price: 5, Stock: 3})
	c.Apply(context.Background(), store.Event{Collection: domain.ColProducts, ID: "p1", Op: store.OpPut})
	assert.Equal(t, 3, c.Products()[0].Stock)
}

func TestApplyDeleteRemovesDocument(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, domain.ColOrders, "o1", domain.Order{ID: "o1", Status: domain.OrderOpen})
	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))
	require.Len(t, c.Orders(), 1)

	c.Apply(context.Background(), store.Event{Collection: domain.ColOrders, ID: "o1", Op: store.OpDelete})
	assert.Empty(t, c.Orders())
}

func TestApplyPutForVanishedDocumentDrops(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso"})
	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, mem.RunTx(context.Background(), func(tx store.Tx) error {
		return tx.Delete(context.Background(), domain.ColProducts, "p1")
	}))
	// The put event raced with a later delete; refetch misses, entry drops.
	c.Apply(context.Background(), store.Event{Collection: domain.ColProducts, ID: "p1", Op: store.OpPut})
	assert.Empty(t, c.Products())
}

func TestLoadPrunesStaleEntries(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso"})
	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, mem.RunTx(context.Background(), func(tx store.Tx) error {
		return tx.Delete(context.Background(), domain.ColProducts, "p1")
	}))
	require.NoError(t, c.Load(context.Background()))
	assert.Empty(t, c.Products())
}

func TestRunAppliesEventsFromSubscription(t *testing.T) {
	mem := store.NewMemory()
	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	events := mem.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, events)
		close(done)
	}()

	put(t, mem, domain.ColProducts, "p1", domain.Product{ID: "p1", Name: "Espresso", Price: 5, Stock: 10})

	require.Eventually(t, func() bool { return len(c.Products()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestUndecodableDocumentSkipped(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, domain.ColProducts, "bad", json.RawMessage(`"just a string"`))
	put(t, mem, domain.ColProducts, "good", domain.Product{ID: "good", Name: "Espresso"})

	c := New(mem, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))
	require.Len(t, c.Products(), 1)
	assert.Equal(t, "good", c.Products()[0].ID)
}
