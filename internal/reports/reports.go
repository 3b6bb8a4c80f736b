// Package reports derives sales views by folding over closed orders. Pure
// functions over the current snapshot; nothing here is persisted.
package reports

import (
	"sort"

	"cafe-system/internal/domain"
)

// CommissionRate is the flat waiter commission on closed-order totals.
const CommissionRate = 0.10

// LowStockThreshold marks products worth restocking on the dashboard.
const LowStockThreshold = 20

type DailySales struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type ProductSales struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

type Commission struct {
	WaiterID   string  `json:"waiter_id"`
	Name       string  `json:"name"`
	TotalSales float64 `json:"total_sales"`
	Commission float64 `json:"commission"`
}

type Summary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	ClosedOrders   int     `json:"closed_orders"`
	OccupiedTables int     `json:"occupied_tables"`
	TotalTables    int     `json:"total_tables"`
	LowStock       int     `json:"low_stock"`
}

// SalesByDay groups closed orders by closing date, ascending.
func SalesByDay(orders []domain.Order) []DailySales {
	byDay := make(map[string]*DailySales)
	for _, o := range orders {
		if o.Status != domain.OrderClosed || o.ClosedAt == nil {
			continue
		}
		day := o.ClosedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailySales{Date: day}
			byDay[day] = d
		}
		d.Orders++
		d.Revenue += o.Total
	}
	out := make([]DailySales, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SalesByProduct sums quantity and revenue per product over closed orders,
// highest revenue first.
func SalesByProduct(orders []domain.Order) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, o := range orders {
		if o.Status != domain.OrderClosed {
			continue
		}
		for _, it := range o.Items {
			p, ok := byProduct[it.ProductID]
			if !ok {
				p = &ProductSales{ProductID: it.ProductID, Name: it.ProductName}
				byProduct[it.ProductID] = p
			}
			p.Quantity += it.Quantity
			p.Revenue += float64(it.Quantity) * it.UnitPrice
		}
	}
	out := make([]ProductSales, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Commissions reports every waiter, including those with no sales.
func Commissions(orders []domain.Order, waiters []domain.Waiter) []Commission {
	byWaiter := make(map[string]*Commission, len(waiters))
	out := make([]Commission, 0, len(waiters))
	for _, w := range waiters {
		byWaiter[w.ID] = &Commission{WaiterID: w.ID, Name: w.Name}
	}
	for _, o := range orders {
		if o.Status != domain.OrderClosed {
			continue
		}
		c, ok := byWaiter[o.WaiterID]
		if !ok {
			continue
		}
		c.TotalSales += o.Total
	}
	for _, w := range waiters {
		c := byWaiter[w.ID]
		c.Commission = c.TotalSales * CommissionRate
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BuildSummary computes the dashboard tiles.
func BuildSummary(orders []domain.Order, products []domain.Product, tables []domain.Table) Summary {
	var s Summary
	for _, o := range orders {
		if o.Status == domain.OrderClosed {
			s.ClosedOrders++
			s.TotalRevenue += o.Total
		}
	}
	for _, p := range products {
		if p.Stock < LowStockThreshold {
			s.LowStock++
		}
	}
	s.TotalTables = len(tables)
	for _, t := range tables {
		if t.Status == domain.TableOccupied {
			s.OccupiedTables++
		}
	}
	return s
}
