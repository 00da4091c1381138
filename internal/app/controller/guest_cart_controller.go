package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/milkbites/milkbites-backend/internal/app/guestcart"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/ws"
)

// GuestCartController serves the anonymous cart. The client carries an
// opaque token in the X-Guest-Token header; the first add mints one.
type GuestCartController struct {
	guestService guestcart.Service
	hub          *ws.Hub
}

func NewGuestCartController(guestService guestcart.Service, hub *ws.Hub) *GuestCartController {
	return &GuestCartController{
		guestService: guestService,
		hub:          hub,
	}
}

type GuestAddToCartRequest struct {
	ProductID     uint                 `json:"product_id" binding:"required"`
	Quantity      int                  `json:"quantity" binding:"required,gt=0"`
	Customization *model.Customization `json:"customization"`
}

func (ctrl *GuestCartController) notifyCount(token string, count int) {
	if ctrl.hub == nil {
		return
	}
	ctrl.hub.NotifyCartCount(ws.GuestKey(token), count)
}

// GetCart returns the guest cart for the presented token
// GET /api/v1/guest-cart
func (ctrl *GuestCartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token, ok := middleware.GetGuestToken(c)
	if !ok || token == "" {
		apperrors.BadRequest(c, apperrors.CartTokenRequired, "Guest cart token is required")
		return
	}

	cart, err := ctrl.guestService.GetCart(c.Request.Context(), token)
	if err != nil {
		log.Error("Failed to fetch guest cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart_items": cart.Items,
		"count":      cart.Count(),
		"subtotal":   cart.Subtotal(),
	})
}

// AddToCart adds a product to the guest cart, minting a token when the
// client does not have one yet
// POST /api/v1/guest-cart
func (ctrl *GuestCartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GuestAddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid guest cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cart details")
		return
	}

	token, ok := middleware.GetGuestToken(c)
	if !ok || token == "" {
		token = uuid.NewString()
		log.Debug("Minted new guest cart token", nil)
	}

	cart, err := ctrl.guestService.AddItem(c.Request.Context(), token, req.ProductID, req.Quantity, req.Customization)
	if err != nil {
		if respondSelectionError(c, err) {
			return
		}
		switch {
		case errors.Is(err, guestcart.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, guestcart.ErrProductUnavailable):
			apperrors.BadRequest(c, apperrors.ProductInactive, "This product is not available")
		case errors.Is(err, guestcart.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQty, "Quantity must be at least 1")
		default:
			log.Error("Failed to add to guest cart", err, map[string]interface{}{
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add to cart")
		}
		return
	}

	ctrl.notifyCount(token, cart.Count())

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Item added to cart",
		"guest_token": token,
		"cart_items":  cart.Items,
		"count":       cart.Count(),
		"subtotal":    cart.Subtotal(),
	})
}

// RemoveProduct drops every guest cart line for the product
// DELETE /api/v1/guest-cart/product/:productId
func (ctrl *GuestCartController) RemoveProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token, ok := middleware.GetGuestToken(c)
	if !ok || token == "" {
		apperrors.BadRequest(c, apperrors.CartTokenRequired, "Guest cart token is required")
		return
	}

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	cart, err := ctrl.guestService.RemoveItem(c.Request.Context(), token, uint(productID))
	if err != nil {
		if errors.Is(err, guestcart.ErrItemNotFound) {
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Product is not in the cart")
			return
		}
		log.Error("Failed to remove product from guest cart", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "remove from cart")
		return
	}

	ctrl.notifyCount(token, cart.Count())

	c.JSON(http.StatusOK, gin.H{
		"message":    "Product removed from cart",
		"cart_items": cart.Items,
		"count":      cart.Count(),
		"subtotal":   cart.Subtotal(),
	})
}

// GetCartCount returns the guest badge count
// GET /api/v1/guest-cart/count
func (ctrl *GuestCartController) GetCartCount(c *gin.Context) {
	token, ok := middleware.GetGuestToken(c)
	if !ok || token == "" {
		apperrors.BadRequest(c, apperrors.CartTokenRequired, "Guest cart token is required")
		return
	}

	count, err := ctrl.guestService.Count(c.Request.Context(), token)
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}
