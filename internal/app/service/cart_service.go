package service

import (
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CartSummary is the cart as the storefront renders it: lines plus the
// badge count and subtotal at captured prices.
type CartSummary struct {
	Items    []model.CartItem `json:"items"`
	Count    int              `json:"count"`
	Subtotal float64          `json:"subtotal"`
}

type CartService interface {
	GetUserCart(userID uint) (*CartSummary, error)
	CartCount(userID uint) (int, error)
	AddToCart(userID, productID uint, quantity int, customization *model.Customization) (*model.CartItem, error)
	UpdateCartItem(userID, cartItemID uint, quantity int) error
	RemoveProduct(userID, productID uint) (int64, error)
	ClearCart(userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetUserCart(userID uint) (*CartSummary, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	summary := &CartSummary{Items: cartItems}
	for i := range cartItems {
		summary.Count += cartItems[i].Quantity
		summary.Subtotal += cartItems[i].Subtotal()
	}

	logger.Info("User cart fetched successfully", map[string]interface{}{
		"user_id":  userID,
		"lines":    len(cartItems),
		"count":    summary.Count,
		"subtotal": summary.Subtotal,
	})
	return summary, nil
}

func (s *cartService) CartCount(userID uint) (int, error) {
	summary, err := s.GetUserCart(userID)
	if err != nil {
		return 0, err
	}
	return summary.Count, nil
}

// AddToCart validates the customization against the product schema,
// prices the line server-side and merges into an existing line when the
// product and customization match exactly. A different customization of
// the same product stays a separate line.
func (s *cartService) AddToCart(userID, productID uint, quantity int, customization *model.Customization) (*model.CartItem, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	if !product.IsActive {
		logger.Warn("Cannot add to cart: product inactive", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, ErrProductNotAvailable
	}

	if err := pricing.ValidateSelection(product, customization); err != nil {
		logger.Warn("Cannot add to cart: invalid customization", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}
	unitPrice := pricing.UnitPrice(product, customization)

	existingLines, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil {
		logger.Error("Failed to check existing cart lines", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	var existingItem *model.CartItem
	for i := range existingLines {
		if existingLines[i].Customization.Equal(customization) {
			existingItem = &existingLines[i]
			break
		}
	}

	requestedQuantity := quantity
	if existingItem != nil {
		requestedQuantity = existingItem.Quantity + quantity
	}

	if product.StockQuantity < requestedQuantity {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  requestedQuantity,
			"available":  product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	if existingItem != nil {
		logger.Debug("Merging into existing cart line", map[string]interface{}{
			"cart_item_id": existingItem.ID,
			"old_qty":      existingItem.Quantity,
			"new_qty":      requestedQuantity,
		})
		existingItem.Quantity = requestedQuantity
		if err := s.cartRepo.Update(existingItem); err != nil {
			logger.Error("Failed to update cart item", err, map[string]interface{}{
				"cart_item_id": existingItem.ID,
			})
			return nil, err
		}
		return existingItem, nil
	}

	cartItem := &model.CartItem{
		UserID:        userID,
		ProductID:     productID,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		Customization: customization,
	}

	if err := s.cartRepo.Create(cartItem); err != nil {
		logger.Error("Failed to create cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Info("Cart item added successfully", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"unit_price":   cartItem.UnitPrice,
	})
	return cartItem, nil
}

func (s *cartService) UpdateCartItem(userID, cartItemID uint, quantity int) error {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": cartItemID,
		"quantity":     quantity,
	})

	if quantity < 1 {
		return ErrInvalidQuantity
	}

	cartItem, err := s.cartRepo.FindByID(cartItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found", map[string]interface{}{
				"cart_item_id": cartItemID,
			})
			return ErrCartItemNotFound
		}
		logger.Error("Failed to fetch cart item", err, map[string]interface{}{
			"cart_item_id": cartItemID,
		})
		return err
	}

	if cartItem.UserID != userID {
		logger.Warn("Cart item access denied: ownership mismatch", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": cartItemID,
			"owner_id":     cartItem.UserID,
		})
		return ErrCartItemNotFound
	}

	product, err := s.productRepo.FindByID(cartItem.ProductID)
	if err != nil {
		logger.Error("Failed to fetch product for stock check", err, map[string]interface{}{
			"cart_item_id": cartItemID,
			"product_id":   cartItem.ProductID,
		})
		return err
	}

	if product.StockQuantity < quantity {
		logger.Warn("Cannot update cart item: insufficient stock", map[string]interface{}{
			"cart_item_id": cartItemID,
			"requested":    quantity,
			"available":    product.StockQuantity,
		})
		return ErrInsufficientStock
	}

	cartItem.Quantity = quantity
	if err := s.cartRepo.Update(cartItem); err != nil {
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"cart_item_id": cartItemID,
		})
		return err
	}

	logger.Info("Cart item updated successfully", map[string]interface{}{
		"cart_item_id": cartItemID,
	})
	return nil
}

// RemoveProduct drops every cart line sharing the product id, regardless
// of customization, and returns how many lines went away.
func (s *cartService) RemoveProduct(userID, productID uint) (int64, error) {
	logger.Info("Removing product from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	removed, err := s.cartRepo.DeleteByUserAndProduct(userID, productID)
	if err != nil {
		logger.Error("Failed to remove product from cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return 0, err
	}
	if removed == 0 {
		logger.Warn("No cart lines found for product removal", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return 0, ErrCartItemNotFound
	}

	logger.Info("Product removed from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"lines":      removed,
	})
	return removed, nil
}

func (s *cartService) ClearCart(userID uint) error {
	logger.Info("Clearing user cart", map[string]interface{}{
		"user_id": userID,
	})

	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Info("User cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
