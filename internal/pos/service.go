// Package pos implements the point-of-sale consistency protocol: every
// operation touches product stock, order contents and table occupancy in a
// single store transaction, so the three never diverge, even across
// concurrently editing terminals.
package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cafe-system/internal/domain"
	"cafe-system/internal/metrics"
	"cafe-system/internal/store"
)

type Service struct {
	store store.Store
	log   zerolog.Logger
	met   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.met = m }
}

// WithClock and WithIDs pin time and id generation in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(st store.Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddItemToOrder adds one unit of a product to the table's open order,
// creating the order and occupying the table on the first item. The order
// write, table write and stock decrement commit together or not at all.
func (s *Service) AddItemToOrder(ctx context.Context, tableID, productID, waiterID string) (domain.Order, error) {
	var out domain.Order
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		product, err := s.product(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product.Stock < 1 {
			return fmt.Errorf("%s: %w", product.Name, domain.ErrOutOfStock)
		}
		table, err := s.table(ctx, tx, tableID)
		if err != nil {
			return err
		}

		var order domain.Order
		if table.OrderID != "" {
			order, err = s.order(ctx, tx, table.OrderID)
			if err != nil {
				if errors.Is(err, domain.ErrOrderNotFound) {
					return fmt.Errorf("table %s points at missing order %s: %w", table.ID, table.OrderID, domain.ErrOrderNotOpen)
				}
				return err
			}
			if order.Status != domain.OrderOpen {
				return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotOpen)
			}
			if i := order.Item(product.ID); i >= 0 {
				order.Items[i].Quantity++
			} else {
				order.Items = append(order.Items, domain.OrderItem{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    1,
					UnitPrice:   product.Price,
				})
			}
		} else {
			if _, err := s.waiter(ctx, tx, waiterID); err != nil {
				return err
			}
			order = domain.Order{
				ID:       s.newID(),
				TableID:  table.ID,
				WaiterID: waiterID,
				Items: []domain.OrderItem{{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    1,
					UnitPrice:   product.Price,
				}},
				Status:    domain.OrderOpen,
				CreatedAt: s.now().UTC(),
			}
		}
		order.Total = order.ItemsTotal()
		table.Status = domain.TableOccupied
		table.OrderID = order.ID
		product.Stock--

		if err := tx.Put(ctx, domain.ColOrders, order.ID, order); err != nil {
			return err
		}
		if err := tx.Put(ctx, domain.ColTables, table.ID, table); err != nil {
			return err
		}
		if err := tx.Put(ctx, domain.ColProducts, product.ID, product); err != nil {
			return err
		}
		out = order
		return nil
	})
	s.met.Observe("add_item", err)
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info().Str("order_id", out.ID).Str("table_id", tableID).
		Str("product_id", productID).Msg("item added")
	return out, nil
}

// UpdateItemQuantity sets a line's quantity, moving the difference between
// the order and the product's stock. newQuantity <= 0 removes the line; an
// order whose last line is removed stays open with an empty item list.
func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, productID string, newQuantity int) (domain.Order, error) {
	var out domain.Order
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		order, err := s.order(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderOpen {
			return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotOpen)
		}
		i := order.Item(productID)
		if i < 0 {
			return fmt.Errorf("product %s in order %s: %w", productID, orderID, domain.ErrItemNotFound)
		}
		product, err := s.product(ctx, tx, productID)
		if err != nil {
			return err
		}

		if newQuantity < 0 {
			newQuantity = 0
		}
		stockDelta := order.Items[i].Quantity - newQuantity
		if product.Stock+stockDelta < 0 {
			return fmt.Errorf("%s: %w", product.Name, domain.ErrInsufficientStock)
		}
		product.Stock += stockDelta
		if newQuantity == 0 {
			order.Items = append(order.Items[:i], order.Items[i+1:]...)
		} else {
			order.Items[i].Quantity = newQuantity
		}
		order.Total = order.ItemsTotal()

		if err := tx.Put(ctx, domain.ColOrders, order.ID, order); err != nil {
			return err
		}
		if err := tx.Put(ctx, domain.ColProducts, product.ID, product); err != nil {
			return err
		}
		out = order
		return nil
	})
	s.met.Observe("update_quantity", err)
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info().Str("order_id", orderID).Str("product_id", productID).
		Int("quantity", newQuantity).Msg("item quantity updated")
	return out, nil
}

// RemoveItem is UpdateItemQuantity with a quantity of zero.
func (s *Service) RemoveItem(ctx context.Context, orderID, productID string) (domain.Order, error) {
	return s.UpdateItemQuantity(ctx, orderID, productID, 0)
}

// CloseTable finalizes the order and frees its table. An order closes
// exactly once: closing again reports the order as not found.
func (s *Service) CloseTable(ctx context.Context, orderID, paymentMethod string) (domain.Order, error) {
	var out domain.Order
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		order, err := s.order(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderClosed {
			return fmt.Errorf("order %s already closed: %w", orderID, domain.ErrOrderNotFound)
		}
		closedAt := s.now().UTC()
		order.Status = domain.OrderClosed
		order.ClosedAt = &closedAt
		order.PaymentMethod = paymentMethod
		if err := tx.Put(ctx, domain.ColOrders, order.ID, order); err != nil {
			return err
		}
		if err := s.freeTable(ctx, tx, order.TableID, orderID); err != nil {
			return err
		}
		out = order
		return nil
	})
	s.met.Observe("close_table", err)
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info().Str("order_id", orderID).Str("payment_method", paymentMethod).
		Float64("total", out.Total).Msg("table closed")
	return out, nil
}

// CancelOrder restores every line's quantity to its product's stock, frees
// the table and deletes the order document.
func (s *Service) CancelOrder(ctx context.Context, orderID string) error {
	err := s.store.RunTx(ctx, func(tx store.Tx) error {
		order, err := s.order(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderOpen {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotOpen)
		}
		for _, item := range order.Items {
			product, err := s.product(ctx, tx, item.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					// Product deleted while on an order; nothing to restore.
					continue
				}
				return err
			}
			product.Stock += item.Quantity
			if err := tx.Put(ctx, domain.ColProducts, product.ID, product); err != nil {
				return err
			}
		}
		if err := s.freeTable(ctx, tx, order.TableID, orderID); err != nil {
			return err
		}
		return tx.Delete(ctx, domain.ColOrders, orderID)
	})
	s.met.Observe("cancel_order", err)
	if err != nil {
		return err
	}
	s.log.Info().Str("order_id", orderID).Msg("order cancelled")
	return nil
}

func (s *Service) freeTable(ctx context.Context, tx store.Tx, tableID, orderID string) error {
	table, err := s.table(ctx, tx, tableID)
	if err != nil {
		if errors.Is(err, domain.ErrTableNotFound) {
			return nil
		}
		return err
	}
	if table.OrderID != orderID {
		return nil
	}
	table.Status = domain.TableAvailable
	table.OrderID = ""
	return tx.Put(ctx, domain.ColTables, table.ID, table)
}

func (s *Service) product(ctx context.Context, tx store.Tx, id string) (domain.Product, error) {
	raw, err := tx.Get(ctx, domain.ColProducts, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrProductNotFound)
		}
		return domain.Product{}, err
	}
	p, repairs, err := domain.DecodeProduct(raw)
	s.logRepairs(domain.ColProducts, id, repairs)
	return p, err
}

func (s *Service) table(ctx context.Context, tx store.Tx, id string) (domain.Table, error) {
	raw, err := tx.Get(ctx, domain.ColTables, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Table{}, fmt.Errorf("table %s: %w", id, domain.ErrTableNotFound)
		}
		return domain.Table{}, err
	}
	return domain.DecodeTable(raw)
}

func (s *Service) waiter(ctx context.Context, tx store.Tx, id string) (domain.Waiter, error) {
	raw, err := tx.Get(ctx, domain.ColWaiters, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Waiter{}, fmt.Errorf("waiter %s: %w", id, domain.ErrWaiterNotFound)
		}
		return domain.Waiter{}, err
	}
	return domain.DecodeWaiter(raw)
}

func (s *Service) order(ctx context.Context, tx store.Tx, id string) (domain.Order, error) {
	raw, err := tx.Get(ctx, domain.ColOrders, id)
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

func (s *Service) logRepairs(collection, id string, repairs []domain.Repair) {
	for _, r := range repairs {
		s.log.Warn().Str("collection", collection).Str("id", id).
			Str("field", r.Field).Any("was", r.Was).Msg("repaired malformed field")
	}
}
