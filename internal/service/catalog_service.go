package service

import (
	"context"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService manages categories and products
type CatalogService struct {
	store  *store.Store
	guard  *ReferentialGuard
	logger *zap.Logger
}

func NewCatalogService(store *store.Store, guard *ReferentialGuard) *CatalogService {
	return &CatalogService{store: store, guard: guard, logger: util.GetLogger()}
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type ProductRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
}

func (r *ProductRequest) validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if r.Price.IsNegative() {
		return invalid("price must not be negative")
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.Catalog().ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	category := &models.Category{Name: req.Name, Description: req.Description}
	if err := s.store.Catalog().CreateCategory(ctx, category); err != nil {
		return nil, writeErr("category", err)
	}
	s.logger.Info("Category created", zap.Int64("category_id", category.ID))
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *CategoryRequest) (*models.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	category := &models.Category{ID: id, Name: req.Name, Description: req.Description}
	if err := s.store.Catalog().UpdateCategory(ctx, category); err != nil {
		return nil, writeErr("category", err)
	}
	return s.store.Catalog().GetCategory(ctx, id)
}

// DeleteCategory removes a category that no product is filed under.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.guard.CheckCategory(ctx, id); err != nil {
		return err
	}
	if err := s.store.Catalog().DeleteCategory(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.ProductListing, error) {
	return s.store.Catalog().ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.ProductListing, error) {
	product, err := s.store.Catalog().GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.ProductListing, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
	}
	if err := s.store.Catalog().CreateProduct(ctx, product); err != nil {
		return nil, writeErr("product", err)
	}
	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return s.GetProduct(ctx, product.ID)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.ProductListing, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
	}
	if err := s.store.Catalog().UpdateProduct(ctx, product); err != nil {
		return nil, writeErr("product", err)
	}
	return s.GetProduct(ctx, id)
}

// DeactivateProduct takes a product off sale without deleting its history.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id int64) error {
	if err := s.store.Catalog().DeactivateProduct(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.logger.Info("Product deactivated", zap.Int64("product_id", id))
	return nil
}

// DeleteProduct removes a product that no order line references.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.guard.CheckProduct(ctx, id); err != nil {
		return err
	}
	if err := s.store.Catalog().DeleteProduct(ctx, id); err != nil {
		if store.IsForeignKeyViolation(err) {
			// an order line arrived after the guard counted
			return &DependentsError{Entity: "product", ID: id, Dependent: "order_items", Count: 1}
		}
		return mapStoreErr(err)
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// writeErr maps constraint failures on insert/update to caller errors.
func writeErr(entity string, err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return fmt.Errorf("%s name %w", entity, ErrAlreadyExists)
	case store.IsForeignKeyViolation(err):
		return invalid("%s references an unknown row", entity)
	}
	return mapStoreErr(err)
}
