package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-service/internal/models"
)

type OrderRepo struct {
	q Querier
}

// InsertOrder creates an order row and fills in its id and created_at
func (r *OrderRepo) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, payment_method)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return r.q.GetContext(ctx, order, query,
		order.UserID, order.TotalAmount, order.PaymentMethod)
}

// InsertOrderItem creates one order line and fills in its id
func (r *OrderRepo) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return r.q.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
}

// StockMovements returns what each line of an order took out of stock
func (r *OrderRepo) StockMovements(ctx context.Context, orderID int64) ([]models.StockMovement, error) {
	movements := []models.StockMovement{}
	err := r.q.SelectContext(ctx, &movements,
		"SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return movements, err
}

// DeleteOrderItems removes every line of an order
func (r *OrderRepo) DeleteOrderItems(ctx context.Context, orderID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// DeleteOrder removes the order row. A missing order yields ErrNotFound.
func (r *OrderRepo) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

// GetOrder retrieves an order by ID
func (r *OrderRepo) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.q.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns all orders, newest first, with the cashier's name
func (r *OrderRepo) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	orders := []models.OrderSummary{}
	err := r.q.SelectContext(ctx, &orders, `
		SELECT o.*, u.name AS user_name
		FROM orders o
		LEFT JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC, o.id DESC`)
	return orders, err
}

// ListOrderItems returns the lines of an order with product names
func (r *OrderRepo) ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItemDetail, error) {
	items := []models.OrderItemDetail{}
	err := r.q.SelectContext(ctx, &items, `
		SELECT oi.*, p.name AS product_name
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	return items, err
}

// CountOrdersByUser counts orders rung up by a user
func (r *OrderRepo) CountOrdersByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.GetContext(ctx, &n, "SELECT COUNT(*) FROM orders WHERE user_id = $1", userID)
	return n, err
}

// CountItemsByProduct counts order lines that reference a product
func (r *OrderRepo) CountItemsByProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	err := r.q.GetContext(ctx, &n, "SELECT COUNT(*) FROM order_items WHERE product_id = $1", productID)
	return n, err
}
