package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User is a till operator. PasswordHash never leaves the service.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups products
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product is a sellable item. StockQuantity is not clamped at zero.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	CategoryID    *int64          `db:"category_id" json:"category_id"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// ProductListing is a product joined with its category name
type ProductListing struct {
	Product
	CategoryName *string `db:"category_name" json:"category_name"`
}

// Order is an immutable sale record
type Order struct {
	ID            int64           `db:"id" json:"id"`
	UserID        *int64          `db:"user_id" json:"user_id"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// OrderSummary is an order joined with the name of the user who rang it up
type OrderSummary struct {
	Order
	UserName *string `db:"user_name" json:"user_name"`
}

// OrderItem is one line of an order. UnitPrice is the price at time of sale.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// OrderItemDetail is an order item joined with the product name
type OrderItemDetail struct {
	OrderItem
	ProductName *string `db:"product_name" json:"product_name"`
}

// StockMovement is the (product, quantity) pair an order item moved
type StockMovement struct {
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}
