package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTxCommitsAtomically(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.Put(ctx, "products", "a", map[string]any{"id": "a"}))
		require.NoError(t, tx.Put(ctx, "tables", "t", map[string]any{"id": "t"}))
		return nil
	})
	require.NoError(t, err)

	_, err = mem.Get(ctx, "products", "a")
	assert.NoError(t, err)
	_, err = mem.Get(ctx, "tables", "t")
	assert.NoError(t, err)
}

func TestMemoryTxErrorDiscardsWrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := mem.RunTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.Put(ctx, "products", "a", map[string]any{"id": "a"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = mem.Get(ctx, "products", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTxReadsOwnWrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.Put(ctx, "products", "a", map[string]any{"id": "a"}))
		raw, err := tx.Get(ctx, "products", "a")
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		require.NoError(t, tx.Delete(ctx, "products", "a"))
		_, err = tx.Get(ctx, "products", "a")
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryTxListSeesStagedState(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.RunTx(ctx, func(tx Tx) error {
		return tx.Put(ctx, "products", "old", map[string]any{"id": "old"})
	}))

	err := mem.RunTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.Delete(ctx, "products", "old"))
		require.NoError(t, tx.Put(ctx, "products", "new", map[string]any{"id": "new"}))
		docs, err := tx.List(ctx, "products")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "new", docs[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemorySubscribeReceivesCommittedEvents(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	events := mem.Subscribe()

	require.NoError(t, mem.RunTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.Put(ctx, "products", "a", map[string]any{"id": "a"}))
		return tx.Delete(ctx, "products", "b")
	}))

	ev := <-events
	assert.Equal(t, Event{Collection: "products", ID: "a", Op: OpPut}, ev)
	ev = <-events
	assert.Equal(t, Event{Collection: "products", ID: "b", Op: OpDelete}, ev)
}

func TestMemorySubscribeSilentOnRollback(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	events := mem.Subscribe()

	_ = mem.RunTx(ctx, func(tx Tx) error {
		_ = tx.Put(ctx, "products", "a", map[string]any{"id": "a"})
		return errors.New("boom")
	})

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}
