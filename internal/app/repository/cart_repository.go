package repository

import (
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

type CartRepository interface {
	Create(cartItem *model.CartItem) error
	FindByUserID(userID uint) ([]model.CartItem, error)
	FindByID(id uint) (*model.CartItem, error)
	FindByUserAndProduct(userID, productID uint) ([]model.CartItem, error)
	Update(cartItem *model.CartItem) error
	Delete(id uint) error
	DeleteByUserAndProduct(userID, productID uint) (int64, error)
	DeleteByUserID(userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(cartItem *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"user_id":    cartItem.UserID,
		"product_id": cartItem.ProductID,
		"quantity":   cartItem.Quantity,
	})

	if err := r.db.Create(cartItem).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"user_id":    cartItem.UserID,
			"product_id": cartItem.ProductID,
			"quantity":   cartItem.Quantity,
		})
		return err
	}

	logger.Debug("Cart item created in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
		"product_id":   cartItem.ProductID,
	})
	return nil
}

func (r *cartRepository) FindByUserID(userID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cartItems []model.CartItem
	err := r.db.Where("user_id = ?", userID).
		Preload("Product").
		Order("created_at ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(cartItems),
	})
	return cartItems, nil
}

func (r *cartRepository) FindByID(id uint) (*model.CartItem, error) {
	logger.Debug("Finding cart item by ID in database", map[string]interface{}{
		"cart_item_id": id,
	})

	var cartItem model.CartItem
	err := r.db.Preload("Product").First(&cartItem, id).Error
	if err != nil {
		logger.Error("Failed to find cart item by ID in database", err, map[string]interface{}{
			"cart_item_id": id,
		})
		return nil, err
	}

	logger.Debug("Cart item found by ID in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
		"product_id":   cartItem.ProductID,
	})
	return &cartItem, nil
}

// FindByUserAndProduct returns every line for the product. A product can
// appear multiple times with different customizations; the service picks
// the line whose customization matches.
func (r *cartRepository) FindByUserAndProduct(userID, productID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by user and product in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	var cartItems []model.CartItem
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by user and product in database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by user and product in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"count":      len(cartItems),
	})
	return cartItems, nil
}

func (r *cartRepository) Update(cartItem *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
		"product_id":   cartItem.ProductID,
		"quantity":     cartItem.Quantity,
	})

	if err := r.db.Save(cartItem).Error; err != nil {
		logger.Error("Failed to update cart item in database", err, map[string]interface{}{
			"cart_item_id": cartItem.ID,
			"user_id":      cartItem.UserID,
			"product_id":   cartItem.ProductID,
		})
		return err
	}

	logger.Debug("Cart item updated in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
		"product_id":   cartItem.ProductID,
	})
	return nil
}

func (r *cartRepository) Delete(id uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": id,
	})

	if err := r.db.Delete(&model.CartItem{}, id).Error; err != nil {
		logger.Error("Failed to delete cart item from database", err, map[string]interface{}{
			"cart_item_id": id,
		})
		return err
	}

	logger.Debug("Cart item deleted from database", map[string]interface{}{
		"cart_item_id": id,
	})
	return nil
}

// DeleteByUserAndProduct drops every line sharing the product id and
// returns how many rows went away.
func (r *cartRepository) DeleteByUserAndProduct(userID, productID uint) (int64, error) {
	logger.Debug("Deleting cart items by user and product from database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	result := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items by user and product from database", result.Error, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return 0, result.Error
	}

	logger.Debug("Cart items deleted by user and product from database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"deleted":    result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteByUserID(userID uint) error {
	logger.Debug("Deleting cart items by user ID from database", map[string]interface{}{
		"user_id": userID,
	})

	if err := r.db.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items by user ID from database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Debug("Cart items deleted by user ID from database", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
