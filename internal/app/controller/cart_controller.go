package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/guestcart"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/ws"
)

type CartController struct {
	cartService  service.CartService
	guestService guestcart.Service
	hub          *ws.Hub
}

func NewCartController(cartService service.CartService, guestService guestcart.Service, hub *ws.Hub) *CartController {
	return &CartController{
		cartService:  cartService,
		guestService: guestService,
		hub:          hub,
	}
}

type AddToCartRequest struct {
	ProductID     uint                 `json:"product_id" binding:"required"`
	Quantity      int                  `json:"quantity" binding:"required,gt=0"`
	Customization *model.Customization `json:"customization"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// notifyCount pushes the fresh badge count to the user's open sessions.
func (ctrl *CartController) notifyCount(userID uint) {
	if ctrl.hub == nil {
		return
	}
	count, err := ctrl.cartService.CartCount(userID)
	if err != nil {
		return
	}
	ctrl.hub.NotifyCartCount(ws.UserKey(userID), count)
}

// respondSelectionError maps customization validation failures to 400s
// with the validation message the storefront shows inline.
func respondSelectionError(c *gin.Context, err error) bool {
	var countErr *pricing.SelectionCountError
	if errors.As(err, &countErr) {
		apperrors.BadRequest(c, apperrors.ProductInvalidSelection, countErr.Error())
		return true
	}
	if errors.Is(err, pricing.ErrCustomizationRequired) || errors.Is(err, pricing.ErrUnknownVariant) {
		apperrors.BadRequest(c, apperrors.ProductInvalidSelection, err.Error())
		return true
	}
	return false
}

// GetCart returns the user's cart with count and subtotal
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to cart", nil)
		apperrors.Unauthorized(c, "Login required")
		return
	}

	summary, err := ctrl.cartService.GetUserCart(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart_items": summary.Items,
		"count":      summary.Count,
		"subtotal":   summary.Subtotal,
	})
}

// GetCartCount returns just the badge count
// GET /api/v1/cart/count
func (ctrl *CartController) GetCartCount(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	count, err := ctrl.cartService.CartCount(userID)
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}

// AddToCart adds a product (with optional customization) to the cart
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to cart", nil)
		apperrors.Unauthorized(c, "Login required")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cart details")
		return
	}

	cartItem, err := ctrl.cartService.AddToCart(userID, req.ProductID, req.Quantity, req.Customization)
	if err != nil {
		if respondSelectionError(c, err) {
			return
		}
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrProductNotAvailable):
			apperrors.BadRequest(c, apperrors.ProductInactive, "This product is not available")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.BadRequest(c, apperrors.ProductOutOfStock, "Not enough stock for this product")
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQty, "Quantity must be at least 1")
		default:
			log.Error("Failed to add to cart", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add to cart")
		}
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": cartItem.ID,
	})
	ctrl.notifyCount(userID)

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Item added to cart",
		"cart_item": cartItem,
	})
}

// UpdateCartItem changes the quantity of a cart line
// PUT /api/v1/cart/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	cartItemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid cart item ID")
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cart details")
		return
	}

	if err := ctrl.cartService.UpdateCartItem(userID, uint(cartItemID), req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrCartItemNotFound):
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Cart item not found")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.BadRequest(c, apperrors.ProductOutOfStock, "Not enough stock for this product")
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQty, "Quantity must be at least 1")
		default:
			log.Error("Failed to update cart item", err, map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": cartItemID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		}
		return
	}

	ctrl.notifyCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
	})
}

// RemoveProduct removes every line of a product from the cart
// DELETE /api/v1/cart/product/:productId
func (ctrl *CartController) RemoveProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	removed, err := ctrl.cartService.RemoveProduct(userID, uint(productID))
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Product is not in the cart")
			return
		}
		log.Error("Failed to remove product from cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "remove from cart")
		return
	}

	log.Info("Product removed from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"lines":      removed,
	})
	ctrl.notifyCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Product removed from cart",
		"removed_lines": removed,
	})
}

// ClearCart empties the user's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	if err := ctrl.cartService.ClearCart(userID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "clear cart")
		return
	}

	ctrl.notifyCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

// MergeGuestCart replays a guest cart into the authenticated cart. The
// guest record is dropped either way, so the merge is one-shot.
// POST /api/v1/cart/merge
func (ctrl *CartController) MergeGuestCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	token, ok := middleware.GetGuestToken(c)
	if !ok || token == "" {
		apperrors.BadRequest(c, apperrors.CartTokenRequired, "Guest cart token is required")
		return
	}

	merged, skipped, err := ctrl.guestService.MergeInto(c.Request.Context(), token, userID, ctrl.cartService)
	if err != nil {
		log.Error("Failed to merge guest cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "merge guest cart")
		return
	}

	log.Info("Guest cart merged", map[string]interface{}{
		"user_id": userID,
		"merged":  merged,
		"skipped": skipped,
	})
	ctrl.notifyCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Guest cart merged",
		"merged":  merged,
		"skipped": skipped,
	})
}
