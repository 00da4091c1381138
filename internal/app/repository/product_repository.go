package repository

import (
	"fmt"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductFilter struct {
	Category        *model.ProductCategory
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindWithFilter(filter ProductFilter) ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	FindByCategory(category model.ProductCategory) ([]model.Product, error)
	FindRandomActive(limit int) ([]model.Product, error)
	Update(product *model.Product) error
	Delete(id uint) error
	UpdateStock(id uint, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":     product.Name,
			"category": product.Category,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	return r.FindWithFilter(ProductFilter{})
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":         filter.Category,
		"search":           filter.Search,
		"include_inactive": filter.IncludeInactive,
		"limit":            filter.Limit,
		"offset":           filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}

	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.Search,
		})
		return nil, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return &product, nil
}

func (r *productRepository) FindByCategory(category model.ProductCategory) ([]model.Product, error) {
	return r.FindWithFilter(ProductFilter{Category: &category})
}

// FindRandomActive powers the featured section on the storefront home.
// RANDOM() works on both Postgres and the SQLite test database.
func (r *productRepository) FindRandomActive(limit int) ([]model.Product, error) {
	logger.Debug("Finding random active products", map[string]interface{}{
		"limit": limit,
	})

	var products []model.Product
	err := r.db.Where("is_active = ?", true).
		Order("RANDOM()").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		logger.Error("Failed to find random active products", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, err
	}

	logger.Debug("Random active products found", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	if err := r.db.Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
			"name":       product.Name,
		})
		return err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (r *productRepository) UpdateStock(id uint, quantity int) error {
	logger.Debug("Updating product stock in database", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})

	if err := r.db.Model(&model.Product{}).Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error; err != nil {
		logger.Error("Failed to update product stock in database", err, map[string]interface{}{
			"product_id": id,
			"quantity":   quantity,
		})
		return err
	}

	logger.Debug("Product stock updated in database", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})
	return nil
}
