package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CatalogRepo reads and writes categories and products and owns the stock
// mutation primitives used by order placement and reversal.
type CatalogRepo struct {
	q Querier
}

// DecrementStock subtracts quantity from a product's stock unconditionally.
// Stock may go negative.
func (r *CatalogRepo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, err)
	}
	return expectOneRow(res, productID)
}

// DecrementStockIfAvailable subtracts quantity only when the product holds at
// least that much stock. A product that is short yields ErrInsufficientStock.
func (r *CatalogRepo) DecrementStockIfAvailable(ctx context.Context, productID int64, quantity int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}
	return nil
}

// IncrementStock adds quantity back to a product's stock.
func (r *CatalogRepo) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("increment stock for product %d: %w", productID, err)
	}
	return expectOneRow(res, productID)
}

// StockLevels returns current stock keyed by product id for the given ids.
func (r *CatalogRepo) StockLevels(ctx context.Context, ids []int64) (map[int64]int, error) {
	levels := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}

	query, args, err := sqlx.In("SELECT id, stock_quantity FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID            int64 `db:"id"`
		StockQuantity int   `db:"stock_quantity"`
	}
	if err := r.q.SelectContext(ctx, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		levels[row.ID] = row.StockQuantity
	}
	return levels, nil
}

// ListCategories returns all categories ordered by name
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.q.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// GetCategory retrieves a category by ID
func (r *CatalogRepo) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := r.q.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a category and fills in its id and created_at
func (r *CatalogRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.q.GetContext(ctx, c,
		"INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at",
		c.Name, c.Description)
}

// UpdateCategory overwrites name and description
func (r *CatalogRepo) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE categories SET name = $1, description = $2 WHERE id = $3",
		c.Name, c.Description, c.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, c.ID)
}

// DeleteCategory removes a category. Products pointing at it get a NULL category.
func (r *CatalogRepo) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// CountProductsByCategory counts products assigned to a category
func (r *CatalogRepo) CountProductsByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := r.q.GetContext(ctx, &n, "SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID)
	return n, err
}

// EnsureCategory upserts a category keyed by name and returns its id
func (r *CatalogRepo) EnsureCategory(ctx context.Context, name, description string) (int64, error) {
	var id int64
	err := r.q.GetContext(ctx, &id, `
		INSERT INTO categories (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`,
		name, description)
	return id, err
}

const productListingQuery = `
	SELECT p.*, c.name AS category_name
	FROM products p
	LEFT JOIN categories c ON p.category_id = c.id`

// ListProducts returns all products with their category name, ordered by name
func (r *CatalogRepo) ListProducts(ctx context.Context) ([]models.ProductListing, error) {
	products := []models.ProductListing{}
	err := r.q.SelectContext(ctx, &products, productListingQuery+" ORDER BY p.name")
	return products, err
}

// GetProduct retrieves a product with its category name
func (r *CatalogRepo) GetProduct(ctx context.Context, id int64) (*models.ProductListing, error) {
	var product models.ProductListing
	err := r.q.GetContext(ctx, &product, productListingQuery+" WHERE p.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a product and fills in its id and created_at
func (r *CatalogRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.q.GetContext(ctx, p, `
		INSERT INTO products (name, description, price, stock_quantity, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID)
}

// UpdateProduct overwrites every editable column, stock included
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock_quantity = $4, category_id = $5
		WHERE id = $6`,
		p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID, p.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, p.ID)
}

// DeactivateProduct takes a product off sale by zeroing its stock
func (r *CatalogRepo) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "UPDATE products SET stock_quantity = 0 WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// DeleteProduct removes a product
func (r *CatalogRepo) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// EnsureProduct upserts a product keyed by name. Stock is only set on first
// insert so restarts never overwrite sales.
func (r *CatalogRepo) EnsureProduct(ctx context.Context, p *models.Product) error {
	return r.q.GetContext(ctx, &p.ID, `
		INSERT INTO products (name, description, price, stock_quantity, category_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price, category_id = EXCLUDED.category_id
		RETURNING id`,
		p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("row %d: %w", id, ErrNotFound)
	}
	return nil
}
