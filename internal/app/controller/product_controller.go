package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/storage"
)

type ProductController struct {
	productService service.ProductService
	storage        *storage.S3Storage
}

func NewProductController(productService service.ProductService, s3 *storage.S3Storage) *ProductController {
	return &ProductController{
		productService: productService,
		storage:        s3,
	}
}

type ProductRequest struct {
	Name                  string                      `json:"name" binding:"required"`
	Description           string                      `json:"description"`
	Price                 float64                     `json:"price" binding:"required,gt=0"`
	Category              model.ProductCategory       `json:"category" binding:"required"`
	ImageURL              string                      `json:"image_url"`
	RequiresCustomization bool                        `json:"requires_customization"`
	CustomizationOptions  *model.CustomizationOptions `json:"customization_options"`
	StockQuantity         int                         `json:"stock_quantity" binding:"gte=0"`
	IsActive              *bool                       `json:"is_active"`
}

func (req *ProductRequest) toModel() *model.Product {
	product := &model.Product{
		Name:                  req.Name,
		Description:           req.Description,
		Price:                 req.Price,
		Category:              req.Category,
		ImageURL:              req.ImageURL,
		RequiresCustomization: req.RequiresCustomization,
		CustomizationOptions:  req.CustomizationOptions,
		StockQuantity:         req.StockQuantity,
		IsActive:              true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	return product
}

// ListProducts returns the storefront catalog
// GET /api/v1/products?category=&search=&limit=&offset=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts := service.ProductListOptions{
		Search: c.Query("search"),
	}
	if category := c.Query("category"); category != "" {
		cat := model.ProductCategory(category)
		opts.Category = &cat
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	products, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			apperrors.BadRequest(c, apperrors.ProductInvalidCategory, "Unknown product category")
			return
		}
		log.Error("Failed to fetch products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetFeaturedProducts returns the storefront home sample
// GET /api/v1/products/featured
func (ctrl *ProductController) GetFeaturedProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.GetFeaturedProducts()
	if err != nil {
		log.Error("Failed to fetch featured products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
	})
}

// GetProductByID returns one product with its customization schema
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	product, err := ctrl.productService.GetProductByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// ListAllProducts returns the catalog including inactive products
// GET /api/v1/admin/products
func (ctrl *ProductController) ListAllProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts := service.ProductListOptions{
		Search:          c.Query("search"),
		IncludeInactive: true,
	}
	if category := c.Query("category"); category != "" {
		cat := model.ProductCategory(category)
		opts.Category = &cat
	}

	products, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			apperrors.BadRequest(c, apperrors.ProductInvalidCategory, "Unknown product category")
			return
		}
		log.Error("Failed to fetch products for admin", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// CreateProduct adds a product to the catalog
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid product details")
		return
	}

	product := req.toModel()
	if err := ctrl.productService.CreateProduct(product); err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			apperrors.BadRequest(c, apperrors.ProductInvalidCategory, "Unknown product category")
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created",
		"product": product,
	})
}

// UpdateProduct edits a catalog product
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid product details")
		return
	}

	product := req.toModel()
	product.ID = uint(id)

	if err := ctrl.productService.UpdateProduct(product); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInvalidCategory):
			apperrors.BadRequest(c, apperrors.ProductInvalidCategory, "Unknown product category")
		default:
			log.Error("Failed to update product", err, map[string]interface{}{
				"product_id": id,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update product")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated",
		"product": product,
	})
}

// DeleteProduct removes a product from the catalog
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	if err := ctrl.productService.DeleteProduct(uint(id)); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted",
	})
}

type PresignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignProductImage hands the back office a pre-signed PUT URL so
// large product images go straight to the bucket
// POST /api/v1/admin/products/image/presign
func (ctrl *ProductController) PresignProductImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PresignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid upload details")
		return
	}

	presigned, err := ctrl.storage.GeneratePresignedURL(req.Filename, req.ContentType, storage.FolderProducts)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidContentType) {
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WebP images are allowed")
			return
		}
		log.Error("Failed to presign product image upload", err, nil)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to prepare upload")
		return
	}

	log.Info("Product image upload presigned", map[string]interface{}{
		"key": presigned.Key,
	})

	c.JSON(http.StatusOK, presigned)
}

// UploadProductImage stores a product image and returns its URL
// POST /api/v1/admin/products/image
func (ctrl *ProductController) UploadProductImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Image file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded image", err, nil)
		apperrors.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := ctrl.storage.Upload(c.Request.Context(), storage.FolderProducts,
		fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Image exceeds the maximum upload size")
		case errors.Is(err, storage.ErrInvalidContentType):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WebP images are allowed")
		default:
			log.Error("Failed to upload product image", err, nil)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to upload image")
		}
		return
	}

	log.Info("Product image uploaded", map[string]interface{}{
		"url": url,
	})

	c.JSON(http.StatusCreated, gin.H{
		"image_url": url,
	})
}
