package pos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cafe-system/internal/domain"
	"cafe-system/internal/store"
)

// Catalog, table and waiter administration. Single-document edits still go
// through RunTx so read-check-write stays atomic against the protocol ops.

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	docs, err := s.store.List(ctx, domain.ColProducts)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		p, repairs, err := domain.DecodeProduct(d.Data)
		if err != nil {
			return nil, err
		}
		s.logRepairs(domain.ColProducts, d.ID, repairs)
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Service) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	p.ID = s.newID()
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		return tx.Put(ctx, domain.ColProducts, p.ID, p)
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product added")
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		if _, err := s.product(ctx, tx, p.ID); err != nil {
			return err
		}
		return tx.Put(ctx, domain.ColProducts, p.ID, p)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.store.RunTx(ctx, func(tx store.Tx) error {
		if _, err := s.product(ctx, tx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, domain.ColProducts, id)
	})
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required: %w", domain.ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", domain.ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Service) Tables(ctx context.Context) ([]domain.Table, error) {
	docs, err := s.store.List(ctx, domain.ColTables)
	if err != nil {
		return nil, err
	}
	tables := make([]domain.Table, 0, len(docs))
	for _, d := range docs {
		t, err := domain.DecodeTable(d.Data)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tableNumber(tables[i].Name) < tableNumber(tables[j].Name)
	})
	return tables, nil
}

// AddTable creates the next "Mesa N" after the highest existing number.
func (s *Service) AddTable(ctx context.Context) (domain.Table, error) {
	var out domain.Table
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		docs, err := tx.List(ctx, domain.ColTables)
		if err != nil {
			return err
		}
		next := 1
		for _, d := range docs {
			t, err := domain.DecodeTable(d.Data)
			if err != nil {
				return err
			}
			if n := tableNumber(t.Name); n >= next {
				next = n + 1
			}
		}
		out = domain.Table{
			ID:     s.newID(),
			Name:   fmt.Sprintf("Mesa %d", next),
			Status: domain.TableAvailable,
		}
		return tx.Put(ctx, domain.ColTables, out.ID, out)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.log.Info().Str("table_id", out.ID).Str("name", out.Name).Msg("table added")
	return out, nil
}

// RemoveTable refuses to remove a table that is not available.
func (s *Service) RemoveTable(ctx context.Context, id string) error {
	return s.store.RunTx(ctx, func(tx store.Tx) error {
		table, err := s.table(ctx, tx, id)
		if err != nil {
			return err
		}
		if table.Status != domain.TableAvailable {
			return fmt.Errorf("table %s: %w", table.Name, domain.ErrTableBusy)
		}
		return tx.Delete(ctx, domain.ColTables, id)
	})
}

func tableNumber(name string) int {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(fields[len(fields)-1])
	return n
}

func (s *Service) Waiters(ctx context.Context) ([]domain.Waiter, error) {
	docs, err := s.store.List(ctx, domain.ColWaiters)
	if err != nil {
		return nil, err
	}
	waiters := make([]domain.Waiter, 0, len(docs))
	for _, d := range docs {
		w, err := domain.DecodeWaiter(d.Data)
		if err != nil {
			return nil, err
		}
		waiters = append(waiters, w)
	}
	sort.Slice(waiters, func(i, j int) bool { return waiters[i].Name < waiters[j].Name })
	return waiters, nil
}

func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	docs, err := s.store.List(ctx, domain.ColOrders)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, repairs, err := domain.DecodeOrder(d.Data)
		if err != nil {
			return nil, err
		}
		s.logRepairs(domain.ColOrders, d.ID, repairs)
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (s *Service) Order(ctx context.Context, id string) (domain.Order, error) {
	raw, err := s.store.Get(ctx, domain.ColOrders, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
		}
		return domain.Order{}, err
	}
	o, repairs, err := domain.DecodeOrder(raw)
	s.logRepairs(domain.ColOrders, id, repairs)
	return o, err
}

// OpenOrderByTable resolves the table's open order, if any.
func (s *Service) OpenOrderByTable(ctx context.Context, tableID string) (domain.Order, error) {
	raw, err := s.store.Get(ctx, domain.ColTables, tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("table %s: %w", tableID, domain.ErrTableNotFound)
		}
		return domain.Order{}, err
	}
	table, err := domain.DecodeTable(raw)
	if err != nil {
		return domain.Order{}, err
	}
	if table.OrderID == "" {
		return domain.Order{}, fmt.Errorf("table %s has no open order: %w", tableID, domain.ErrOrderNotFound)
	}
	order, err := s.Order(ctx, table.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.OrderOpen {
		return domain.Order{}, fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotOpen)
	}
	return order, nil
}
