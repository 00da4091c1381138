package service

import (
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotAvailable = errors.New("product is not available")
	ErrInvalidCategory     = errors.New("invalid product category")
)

// featuredCount is how many products the storefront home shows.
const featuredCount = 6

type ProductListOptions struct {
	Category        *model.ProductCategory
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	GetFeaturedProducts() ([]model.Product, error)
	CreateProduct(product *model.Product) error
	UpdateProduct(product *model.Product) error
	DeleteProduct(id uint) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"category":         opts.Category,
		"search":           opts.Search,
		"include_inactive": opts.IncludeInactive,
		"limit":            opts.Limit,
		"offset":           opts.Offset,
	})

	if opts.Category != nil && !model.ValidCategory(string(*opts.Category)) {
		logger.Warn("Product listing rejected: unknown category", map[string]interface{}{
			"category": *opts.Category,
		})
		return nil, ErrInvalidCategory
	}

	filter := repository.ProductFilter{
		Category:        opts.Category,
		Search:          opts.Search,
		IncludeInactive: opts.IncludeInactive,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	}

	products, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	logger.Debug("Products listed", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	logger.Debug("Fetching product by ID", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	return product, nil
}

// GetFeaturedProducts returns a random sample of active products for
// the storefront home.
func (s *productService) GetFeaturedProducts() ([]model.Product, error) {
	logger.Debug("Fetching featured products", nil)

	products, err := s.productRepo.FindRandomActive(featuredCount)
	if err != nil {
		logger.Error("Failed to fetch featured products", err)
		return nil, err
	}

	logger.Debug("Featured products fetched", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	logger.Info("Creating product", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
	})

	if !model.ValidCategory(string(product.Category)) {
		return ErrInvalidCategory
	}

	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (s *productService) UpdateProduct(product *model.Product) error {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	if !model.ValidCategory(string(product.Category)) {
		return ErrInvalidCategory
	}

	existing, err := s.productRepo.FindByID(product.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product for update", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	product.CreatedAt = existing.CreatedAt

	if err := s.productRepo.Update(product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (s *productService) DeleteProduct(id uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product for deletion", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	if err := s.productRepo.Delete(id); err != nil {
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}
