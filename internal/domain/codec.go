package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// The store hands back loosely typed JSON documents. Decoding coerces
// malformed numeric fields to 0 and recomputes totals that disagree with
// the line items, so a bad document degrades instead of poisoning views.
// Repairs are reported to the caller for logging.

// Repair describes one field fixed up while decoding a document.
type Repair struct {
	Field string
	Was   any
}

func (r Repair) String() string { return fmt.Sprintf("%s (was %v)", r.Field, r.Was) }

func DecodeProduct(raw json.RawMessage) (Product, []Repair, error) {
	var aux struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Price    any    `json:"price"`
		Stock    any    `json:"stock"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return Product{}, nil, fmt.Errorf("decode product: %w", err)
	}
	var repairs []Repair
	p := Product{ID: aux.ID, Name: aux.Name, Category: aux.Category}
	p.Price, repairs = coerceFloat(aux.Price, "price", repairs)
	p.Stock, repairs = coerceInt(aux.Stock, "stock", repairs)
	return p, repairs, nil
}

func DecodeTable(raw json.RawMessage) (Table, error) {
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("decode table: %w", err)
	}
	switch t.Status {
	case TableAvailable, TableOccupied, TableClosing:
	default:
		t.Status = TableAvailable
	}
	return t, nil
}

func DecodeOrder(raw json.RawMessage) (Order, []Repair, error) {
	var aux struct {
		ID            string      `json:"id"`
		TableID       string      `json:"table_id"`
		WaiterID      string      `json:"waiter_id"`
		Items         []auxItem   `json:"items"`
		Total         any         `json:"total"`
		Status        OrderStatus `json:"status"`
		CreatedAt     time.Time   `json:"created_at"`
		ClosedAt      *time.Time  `json:"closed_at"`
		PaymentMethod string      `json:"payment_method"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return Order{}, nil, fmt.Errorf("decode order: %w", err)
	}
	var repairs []Repair
	o := Order{
		ID:            aux.ID,
		TableID:       aux.TableID,
		WaiterID:      aux.WaiterID,
		Status:        aux.Status,
		CreatedAt:     aux.CreatedAt,
		ClosedAt:      aux.ClosedAt,
		PaymentMethod: aux.PaymentMethod,
	}
	if o.Status != OrderOpen && o.Status != OrderClosed {
		repairs = append(repairs, Repair{Field: "status", Was: o.Status})
		o.Status = OrderOpen
	}
	o.Items = make([]OrderItem, 0, len(aux.Items))
	for i, it := range aux.Items {
		item := OrderItem{ProductID: it.ProductID, ProductName: it.ProductName}
		item.Quantity, repairs = coerceInt(it.Quantity, fmt.Sprintf("items[%d].quantity", i), repairs)
		item.UnitPrice, repairs = coerceFloat(it.UnitPrice, fmt.Sprintf("items[%d].unit_price", i), repairs)
		o.Items = append(o.Items, item)
	}
	stored, _ := coerceFloat(aux.Total, "total", nil)
	o.Total = o.ItemsTotal()
	if math.Abs(stored-o.Total) > 1e-9 {
		repairs = append(repairs, Repair{Field: "total", Was: aux.Total})
	}
	return o, repairs, nil
}

func DecodeWaiter(raw json.RawMessage) (Waiter, error) {
	var w Waiter
	if err := json.Unmarshal(raw, &w); err != nil {
		return Waiter{}, fmt.Errorf("decode waiter: %w", err)
	}
	return w, nil
}

type auxItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    any    `json:"quantity"`
	UnitPrice   any    `json:"unit_price"`
}

// coerceFloat accepts a JSON number or numeric string; anything else, and
// negative or non-finite values, become 0 with a repair recorded.
func coerceFloat(v any, field string, repairs []Repair) (float64, []Repair) {
	switch n := v.(type) {
	case float64:
		if n >= 0 && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return n, repairs
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil && f >= 0 {
			return f, append(repairs, Repair{Field: field, Was: v})
		}
	case nil:
		return 0, append(repairs, Repair{Field: field, Was: nil})
	}
	return 0, append(repairs, Repair{Field: field, Was: v})
}

func coerceInt(v any, field string, repairs []Repair) (int, []Repair) {
	f, reps := coerceFloat(v, field, repairs)
	if f != math.Trunc(f) {
		return int(f), append(reps, Repair{Field: field, Was: v})
	}
	return int(f), reps
}
