package service

import (
	"context"

	"pos-service/internal/store"
	"pos-service/internal/util"
)

// ReferentialGuard refuses deletions of rows that other rows still point at.
// It only counts; it takes no locks.
type ReferentialGuard struct {
	store *store.Store
}

func NewReferentialGuard(store *store.Store) *ReferentialGuard {
	return &ReferentialGuard{store: store}
}

// CheckCategory refuses when products are filed under the category.
func (g *ReferentialGuard) CheckCategory(ctx context.Context, id int64) error {
	n, err := g.store.Catalog().CountProductsByCategory(ctx, id)
	if err != nil {
		return err
	}
	return refuse("category", id, "products", n)
}

// CheckProduct refuses when order lines reference the product.
func (g *ReferentialGuard) CheckProduct(ctx context.Context, id int64) error {
	n, err := g.store.Orders().CountItemsByProduct(ctx, id)
	if err != nil {
		return err
	}
	return refuse("product", id, "order_items", n)
}

// CheckUser refuses when orders were rung up by the user.
func (g *ReferentialGuard) CheckUser(ctx context.Context, id int64) error {
	n, err := g.store.Orders().CountOrdersByUser(ctx, id)
	if err != nil {
		return err
	}
	return refuse("user", id, "orders", n)
}

func refuse(entity string, id int64, dependent string, n int) error {
	if n == 0 {
		return nil
	}
	util.DeletionsRefusedTotal.WithLabelValues(entity).Inc()
	return &DependentsError{Entity: entity, ID: id, Dependent: dependent, Count: n}
}
