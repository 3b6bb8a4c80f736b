// Package cache mirrors the store's collections in memory. Views and
// reports read the latest snapshot; committed change events keep it fresh.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"cafe-system/internal/domain"
	"cafe-system/internal/store"
)

type Cache struct {
	st  store.Store
	log zerolog.Logger

	mu       sync.RWMutex
	products map[string]domain.Product
	tables   map[string]domain.Table
	orders   map[string]domain.Order
	waiters  map[string]domain.Waiter
}

func New(st store.Store, log zerolog.Logger) *Cache {
	return &Cache{
		st:       st,
		log:      log,
		products: make(map[string]domain.Product),
		tables:   make(map[string]domain.Table),
		orders:   make(map[string]domain.Order),
		waiters:  make(map[string]domain.Waiter),
	}
}

// Load replaces the snapshot with the store's current contents.
func (c *Cache) Load(ctx context.Context) error {
	for _, col := range []string{domain.ColProducts, domain.ColTables, domain.ColOrders, domain.ColWaiters} {
		docs, err := c.st.List(ctx, col)
		if err != nil {
			return err
		}
		fresh := make(map[string]struct{}, len(docs))
		for _, d := range docs {
			if err := c.upsert(col, d.ID, d.Data); err != nil {
				c.log.Warn().Err(err).Str("collection", col).Str("id", d.ID).Msg("skip undecodable document")
				continue
			}
			fresh[d.ID] = struct{}{}
		}
		c.prune(col, fresh)
	}
	return nil
}

// Run applies change events until ctx is done or the channel closes.
func (c *Cache) Run(ctx context.Context, events <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Apply(ctx, ev)
		}
	}
}

// Apply merges one change event: a put refetches the document, a delete
// drops it.
func (c *Cache) Apply(ctx context.Context, ev store.Event) {
	if ev.Op == store.OpDelete {
		c.remove(ev.Collection, ev.ID)
		return
	}
	raw, err := c.st.Get(ctx, ev.Collection, ev.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted again before we refetched.
			c.remove(ev.Collection, ev.ID)
			return
		}
		c.log.Error().Err(err).Str("collection", ev.Collection).Str("id", ev.ID).Msg("refetch after change event")
		return
	}
	if err := c.upsert(ev.Collection, ev.ID, raw); err != nil {
		c.log.Warn().Err(err).Str("collection", ev.Collection).Str("id", ev.ID).Msg("skip undecodable document")
	}
}

func (c *Cache) upsert(collection, id string, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch collection {
	case domain.ColProducts:
		p, repairs, err := domain.DecodeProduct(raw)
		if err != nil {
			return err
		}
		c.logRepairs(collection, id, repairs)
		c.products[id] = p
	case domain.ColTables:
		t, err := domain.DecodeTable(raw)
		if err != nil {
			return err
		}
		c.tables[id] = t
	case domain.ColOrders:
		o, repairs, err := domain.DecodeOrder(raw)
		if err != nil {
			return err
		}
		c.logRepairs(collection, id, repairs)
		c.orders[id] = o
	case domain.ColWaiters:
		w, err := domain.DecodeWaiter(raw)
		if err != nil {
			return err
		}
		c.waiters[id] = w
	}
	return nil
}

func (c *Cache) remove(collection, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch collection {
	case domain.ColProducts:
		delete(c.products, id)
	case domain.ColTables:
		delete(c.tables, id)
	case domain.ColOrders:
		delete(c.orders, id)
	case domain.ColWaiters:
		delete(c.waiters, id)
	}
}

// prune drops snapshot entries that are no longer in the store.
func (c *Cache) prune(collection string, keep map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch collection {
	case domain.ColProducts:
		pruneMap(c.products, keep)
	case domain.ColTables:
		pruneMap(c.tables, keep)
	case domain.ColOrders:
		pruneMap(c.orders, keep)
	case domain.ColWaiters:
		pruneMap(c.waiters, keep)
	}
}

func pruneMap[V any](m map[string]V, keep map[string]struct{}) {
	for id := range m {
		if _, ok := keep[id]; !ok {
			delete(m, id)
		}
	}
}

func (c *Cache) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out
}

func (c *Cache) Tables() []domain.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}

func (c *Cache) Orders() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o)
	}
	return out
}

func (c *Cache) Waiters() []domain.Waiter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Waiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		out = append(out, w)
	}
	return out
}

func (c *Cache) logRepairs(collection, id string, repairs []domain.Repair) {
	for _, r := range repairs {
		c.log.Warn().Str("collection", collection).Str("id", id).
			Str("field", r.Field).Any("was", r.Was).Msg("repaired malformed field")
	}
}
