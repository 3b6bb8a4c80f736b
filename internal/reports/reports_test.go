package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-system/internal/domain"
)

func closedOrder(id, waiterID string, closedAt time.Time, items ...domain.OrderItem) domain.Order {
	o := domain.Order{
		ID:       id,
		WaiterID: waiterID,
		Items:    items,
		Status:   domain.OrderClosed,
		ClosedAt: &closedAt,
	}
	o.Total = o.ItemsTotal()
	return o
}

func item(productID, name string, qty int, price float64) domain.OrderItem {
	return domain.OrderItem{ProductID: productID, ProductName: name, Quantity: qty, UnitPrice: price}
}

var (
	day1 = time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
)

func TestSalesByDay(t *testing.T) {
	orders := []domain.Order{
		closedOrder("o1", "w1", day1, item("p1", "Espresso", 2, 5)),
		closedOrder("o2", "w1", day2, item("p1", "Espresso", 1, 5)),
		closedOrder("o3", "w2", day2, item("p2", "Croissant", 3, 7)),
		{ID: "o4", Status: domain.OrderOpen, Items: []domain.OrderItem{item("p1", "Espresso", 1, 5)}},
	}

	got := SalesByDay(orders)
	require.Len(t, got, 2)
	assert.Equal(t, DailySales{Date: "2025-06-14", Orders: 1, Revenue: 10}, got[0])
	assert.Equal(t, DailySales{Date: "2025-06-15", Orders: 2, Revenue: 26}, got[1])
}

func TestSalesByDaySkipsMissingClosedAt(t *testing.T) {
	got := SalesByDay([]domain.Order{{ID: "o1", Status: domain.OrderClosed, Total: 10}})
	assert.Empty(t, got)
}

func TestSalesByProduct(t *testing.T) {
	orders := []domain.Order{
		closedOrder("o1", "w1", day1, item("p1", "Espresso", 2, 5), item("p2", "Croissant", 1, 7)),
		closedOrder("o2", "w2", day2, item("p1", "Espresso", 3, 5)),
	}

	got := SalesByProduct(orders)
	require.Len(t, got, 2)
	assert.Equal(t, ProductSales{ProductID: "p1", Name: "Espresso", Quantity: 5, Revenue: 25}, got[0])
	assert.Equal(t, ProductSales{ProductID: "p2", Name: "Croissant", Quantity: 1, Revenue: 7}, got[1])
}

func TestCommissionsIncludeIdleWaiters(t *testing.T) {
	waiters := []domain.Waiter{
		{ID: "w1", Name: "João"},
		{ID: "w2", Name: "Maria"},
	}
	orders := []domain.Order{
		closedOrder("o1", "w1", day1, item("p1", "Espresso", 4, 5)),
		closedOrder("o2", "w1", day2, item("p2", "Croissant", 2, 7)),
	}

	got := Commissions(orders, waiters)
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].WaiterID)
	assert.Equal(t, 34.0, got[0].TotalSales)
	assert.InDelta(t, 3.4, got[0].Commission, 1e-9)
	assert.Equal(t, Commission{WaiterID: "w2", Name: "Maria"}, got[1])
}

func TestCommissionsIgnoreUnknownWaiter(t *testing.T) {
	got := Commissions([]domain.Order{closedOrder("o1", "ghost", day1, item("p1", "Espresso", 1, 5))}, nil)
	assert.Empty(t, got)
}

func TestBuildSummary(t *testing.T) {
	orders := []domain.Order{
		closedOrder("o1", "w1", day1, item("p1", "Espresso", 2, 5)),
		{ID: "o2", Status: domain.OrderOpen, Total: 99},
	}
	products := []domain.Product{
		{ID: "p1", Stock: 5},
		{ID: "p2", Stock: 50},
		{ID: "p3", Stock: 19},
	}
	tables := []domain.Table{
		{ID: "t1", Status: domain.TableOccupied},
		{ID: "t2", Status: domain.TableAvailable},
		{ID: "t3", Status: domain.TableOccupied},
	}

	got := BuildSummary(orders, products, tables)
	assert.Equal(t, Summary{
		TotalRevenue:   10,
		ClosedOrders:   1,
		OccupiedTables: 2,
		TotalTables:    3,
		LowStock:       2,
	}, got)
}
