package domain

import "time"

// Collection names in the backing document store.
const (
	ColProducts = "products"
	ColTables   = "tables"
	ColWaiters  = "waiters"
	ColOrders   = "orders"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableClosing   TableStatus = "closing"
)

type OrderStatus string

const (
	OrderOpen   OrderStatus = "open"
	OrderClosed OrderStatus = "closed"
)

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
}

// Table points at most at one open order via OrderID ("" means none).
type Table struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Status  TableStatus `json:"status"`
	OrderID string      `json:"order_id,omitempty"`
}

type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type Order struct {
	ID            string      `json:"id"`
	TableID       string      `json:"table_id"`
	WaiterID      string      `json:"waiter_id"`
	Items         []OrderItem `json:"items"`
	Total         float64     `json:"total"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty"`
	PaymentMethod string      `json:"payment_method,omitempty"`
}

// ItemsTotal is the authoritative total: Σ quantity × unit price.
func (o Order) ItemsTotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return sum
}

// Item returns the index of the line for productID, or -1.
func (o Order) Item(productID string) int {
	for i, it := range o.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

type Waiter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
