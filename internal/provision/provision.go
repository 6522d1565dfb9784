package provision

import (
	"context"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	Username, Password, Name, Role string
}

type seedProduct struct {
	Name, Description, Price string
	Stock                    int
}

type seedCategory struct {
	Name, Description string
	Products          []seedProduct
}

var demoUsers = []seedUser{
	{"admin", "admin123", "Admin User", models.RoleAdmin},
	{"cashier", "cashier123", "John Cashier", models.RoleCashier},
}

var demoCatalog = []seedCategory{
	{"Electronics", "Electronic devices and accessories", []seedProduct{
		{"Laptop", "High performance laptop", "999.99", 10},
		{"Smartphone", "Latest smartphone model", "699.99", 25},
		{"Headphones", "Wireless noise-cancelling headphones", "199.99", 15},
	}},
	{"Groceries", "Food and household items", []seedProduct{
		{"Milk", "Fresh dairy milk", "3.99", 100},
		{"Bread", "Whole wheat bread", "2.99", 50},
		{"Eggs", "Farm fresh eggs (dozen)", "4.99", 75},
	}},
	{"Clothing", "Apparel and accessories", []seedProduct{
		{"T-Shirt", "Cotton t-shirt", "19.99", 50},
		{"Jeans", "Blue denim jeans", "49.99", 30},
		{"Jacket", "Winter jacket", "89.99", 20},
	}},
}

// Seeder creates the schema and loads demo data. Running it again converges
// on the same rows; product stock is only set when a product is first created.
type Seeder struct {
	store    *store.Store
	hashCost int
	logger   *zap.Logger
}

func NewSeeder(store *store.Store) *Seeder {
	return &Seeder{store: store, hashCost: bcrypt.DefaultCost, logger: util.GetLogger()}
}

// Provision migrates the schema then seeds demo data.
func (s *Seeder) Provision(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return s.Seed(ctx)
}

// Seed upserts the demo users, categories and products in one transaction.
func (s *Seeder) Seed(ctx context.Context) error {
	users := make([]*models.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.hashCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		users = append(users, &models.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			Name:         u.Name,
			Role:         u.Role,
		})
	}

	var products int
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, u := range users {
			if err := tx.Users().EnsureUser(ctx, u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
		}

		catalog := tx.Catalog()
		for _, c := range demoCatalog {
			categoryID, err := catalog.EnsureCategory(ctx, c.Name, c.Description)
			if err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}

			for _, p := range c.Products {
				product := &models.Product{
					Name:          p.Name,
					Description:   p.Description,
					Price:         decimal.RequireFromString(p.Price),
					StockQuantity: p.Stock,
					CategoryID:    &categoryID,
				}
				if err := catalog.EnsureProduct(ctx, product); err != nil {
					return fmt.Errorf("seed product %s: %w", p.Name, err)
				}
				products++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Demo data seeded",
		zap.Int("users", len(users)),
		zap.Int("categories", len(demoCatalog)),
		zap.Int("products", products))
	return nil
}
