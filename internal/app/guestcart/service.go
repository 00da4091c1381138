package guestcart

import (
	"context"
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrItemNotFound       = errors.New("item not found in cart")
)

// CartAdder adds one line to a user's persistent cart. Satisfied by
// service.CartService; merge re-validates and re-prices through it.
type CartAdder interface {
	AddToCart(userID, productID uint, quantity int, customization *model.Customization) (*model.CartItem, error)
}

// Service manages anonymous carts. Mutations read the stored cart
// fresh, apply the change and write back; the hub broadcast happens at
// the controller after the mutation returns.
type Service interface {
	GetCart(ctx context.Context, token string) (*Cart, error)
	AddItem(ctx context.Context, token string, productID uint, quantity int, customization *model.Customization) (*Cart, error)
	RemoveItem(ctx context.Context, token string, productID uint) (*Cart, error)
	Count(ctx context.Context, token string) (int, error)
	MergeInto(ctx context.Context, token string, userID uint, adder CartAdder) (merged, skipped int, err error)
}

type guestCartService struct {
	store       Store
	productRepo repository.ProductRepository
}

func NewService(store Store, productRepo repository.ProductRepository) Service {
	return &guestCartService{
		store:       store,
		productRepo: productRepo,
	}
}

func (s *guestCartService) GetCart(ctx context.Context, token string) (*Cart, error) {
	return s.store.Get(ctx, token)
}

// AddItem validates the selection against the product schema, prices the
// line server-side and merges it into an existing line when product and
// customization match exactly. The cart record is created lazily.
func (s *guestCartService) AddItem(ctx context.Context, token string, productID uint, quantity int, customization *model.Customization) (*Cart, error) {
	logger.Debug("Adding item to guest cart", map[string]interface{}{
		"token":      token,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Guest cart add for missing product", map[string]interface{}{
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product for guest cart add", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductUnavailable
	}

	if err := pricing.ValidateSelection(product, customization); err != nil {
		return nil, err
	}
	unitPrice := pricing.UnitPrice(product, customization)

	cart, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID && cart.Items[i].Customization.Equal(customization) {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, Item{
			ProductID:     productID,
			ProductName:   product.Name,
			ImageURL:      product.ImageURL,
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			Customization: customization,
		})
	}

	if err := s.store.Save(ctx, token, cart); err != nil {
		return nil, err
	}

	logger.Info("Guest cart item added", map[string]interface{}{
		"token":      token,
		"product_id": productID,
		"merged":     merged,
		"cart_count": cart.Count(),
	})
	return cart, nil
}

// RemoveItem drops every line sharing the product id, regardless of
// customization. Matches the authenticated cart's removal granularity.
func (s *guestCartService) RemoveItem(ctx context.Context, token string, productID uint) (*Cart, error) {
	cart, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	remaining := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			remaining = append(remaining, item)
		}
	}
	if len(remaining) == len(cart.Items) {
		return nil, ErrItemNotFound
	}
	cart.Items = remaining

	if err := s.store.Save(ctx, token, cart); err != nil {
		return nil, err
	}

	logger.Info("Guest cart item removed", map[string]interface{}{
		"token":      token,
		"product_id": productID,
		"cart_count": cart.Count(),
	})
	return cart, nil
}

func (s *guestCartService) Count(ctx context.Context, token string) (int, error) {
	cart, err := s.store.Get(ctx, token)
	if err != nil {
		return 0, err
	}
	return cart.Count(), nil
}

// MergeInto replays every guest line into the user's persistent cart.
// Each line is re-validated and re-priced by the adder; a failing line
// is logged and skipped, never aborting the batch. The guest record is
// deleted afterwards regardless of per-line outcomes, so a replayed
// merge is a no-op.
func (s *guestCartService) MergeInto(ctx context.Context, token string, userID uint, adder CartAdder) (int, int, error) {
	cart, err := s.store.Get(ctx, token)
	if err != nil {
		return 0, 0, err
	}

	var merged, skipped int
	for _, item := range cart.Items {
		if _, err := adder.AddToCart(userID, item.ProductID, item.Quantity, item.Customization); err != nil {
			logger.Warn("Skipping guest cart item during merge", map[string]interface{}{
				"token":      token,
				"user_id":    userID,
				"product_id": item.ProductID,
				"error":      err.Error(),
			})
			skipped++
			continue
		}
		merged++
	}

	if err := s.store.Delete(ctx, token); err != nil {
		logger.Error("Failed to delete guest cart after merge", err, map[string]interface{}{
			"token": token,
		})
		return merged, skipped, err
	}

	logger.Info("Guest cart merged", map[string]interface{}{
		"token":   token,
		"user_id": userID,
		"merged":  merged,
		"skipped": skipped,
	})
	return merged, skipped, nil
}
