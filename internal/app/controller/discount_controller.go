package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
)

type DiscountController struct {
	discountService service.DiscountService
}

func NewDiscountController(discountService service.DiscountService) *DiscountController {
	return &DiscountController{
		discountService: discountService,
	}
}

type ValidateDiscountRequest struct {
	Code  string  `json:"code" binding:"required"`
	Total float64 `json:"total" binding:"required,gt=0"`
}

type DiscountRequest struct {
	Code        string             `json:"code" binding:"required"`
	Description string             `json:"description"`
	Type        model.DiscountType `json:"type" binding:"required"`
	Value       float64            `json:"value" binding:"required,gt=0"`
	MinPurchase float64            `json:"min_purchase" binding:"gte=0"`
	ValidFrom   *time.Time         `json:"valid_from"`
	ValidUntil  *time.Time         `json:"valid_until"`
	IsActive    *bool              `json:"is_active"`
}

func (req *DiscountRequest) toModel() *model.Discount {
	discount := &model.Discount{
		Code:        req.Code,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		IsActive:    true,
	}
	if req.IsActive != nil {
		discount.IsActive = *req.IsActive
	}
	return discount
}

// Validate checks a code against the cart subtotal at checkout. The
// storefront sends query parameters; a JSON body with the same fields
// is accepted too.
// POST /api/v1/discounts/validate?code=&total=
func (ctrl *DiscountController) Validate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	code := c.Query("code")
	total, _ := strconv.ParseFloat(c.Query("total"), 64)
	if code == "" {
		var req ValidateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid discount validation request", map[string]interface{}{
				"error": err.Error(),
			})
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount details")
			return
		}
		code = req.Code
		total = req.Total
	}
	if total <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount details")
		return
	}

	validation, err := ctrl.discountService.Validate(code, total)
	if err != nil {
		var minPurchaseErr *service.MinPurchaseError
		switch {
		case errors.Is(err, service.ErrDiscountNotFound):
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount code not found")
		case errors.Is(err, service.ErrDiscountInactive):
			apperrors.BadRequest(c, apperrors.DiscountInactive, "This discount code is not active")
		case errors.Is(err, service.ErrDiscountExpired):
			apperrors.BadRequest(c, apperrors.DiscountExpired, "This discount code has expired")
		case errors.Is(err, service.ErrDiscountNotStarted):
			apperrors.BadRequest(c, apperrors.DiscountNotStarted, "This discount code is not valid yet")
		case errors.As(err, &minPurchaseErr):
			apperrors.BadRequest(c, apperrors.DiscountMinPurchase, minPurchaseErr.Error())
		default:
			log.Error("Failed to validate discount code", err, map[string]interface{}{
				"code": code,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "validate discount")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"discount": validation,
	})
}

// ListDiscounts returns every code for the back office
// GET /api/v1/admin/discounts
func (ctrl *DiscountController) ListDiscounts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	discounts, err := ctrl.discountService.ListDiscounts()
	if err != nil {
		log.Error("Failed to fetch discounts", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list discounts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"discounts": discounts,
		"count":     len(discounts),
	})
}

// CreateDiscount adds a new code
// POST /api/v1/admin/discounts
func (ctrl *DiscountController) CreateDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount details")
		return
	}

	discount := req.toModel()
	if err := ctrl.discountService.CreateDiscount(discount); err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountCodeExists):
			apperrors.Conflict(c, apperrors.DiscountCodeExists, "This discount code already exists")
		case errors.Is(err, service.ErrInvalidDiscount):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount definition")
		default:
			log.Error("Failed to create discount", err, map[string]interface{}{
				"code": req.Code,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create discount")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Discount created",
		"discount": discount,
	})
}

// UpdateDiscount edits an existing code
// PUT /api/v1/admin/discounts/:id
func (ctrl *DiscountController) UpdateDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid discount ID")
		return
	}

	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount details")
		return
	}

	discount := req.toModel()
	discount.ID = uint(id)

	if err := ctrl.discountService.UpdateDiscount(discount); err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountNotFound):
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount not found")
		case errors.Is(err, service.ErrInvalidDiscount):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid discount definition")
		default:
			log.Error("Failed to update discount", err, map[string]interface{}{
				"discount_id": id,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update discount")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Discount updated",
		"discount": discount,
	})
}

// DeleteDiscount removes a code
// DELETE /api/v1/admin/discounts/:id
func (ctrl *DiscountController) DeleteDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid discount ID")
		return
	}

	if err := ctrl.discountService.DeleteDiscount(uint(id)); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount not found")
			return
		}
		log.Error("Failed to delete discount", err, map[string]interface{}{
			"discount_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete discount")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount deleted",
	})
}
