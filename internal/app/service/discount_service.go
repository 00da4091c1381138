package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrDiscountNotFound   = errors.New("discount code not found")
	ErrDiscountInactive   = errors.New("discount code is not active")
	ErrDiscountNotStarted = errors.New("discount code is not valid yet")
	ErrDiscountExpired    = errors.New("discount code has expired")
	ErrDiscountCodeExists = errors.New("discount code already exists")
	ErrInvalidDiscount    = errors.New("invalid discount definition")
)

// MinPurchaseError reports a subtotal below the code's threshold.
type MinPurchaseError struct {
	MinPurchase float64
	Subtotal    float64
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %.0f required (cart subtotal %.0f)", e.MinPurchase, e.Subtotal)
}

// DiscountValidation is the outcome of a successful code check.
type DiscountValidation struct {
	Code   string             `json:"code"`
	Type   model.DiscountType `json:"type"`
	Value  float64            `json:"value"`
	Amount float64            `json:"amount"`
}

type DiscountService interface {
	Validate(code string, subtotal float64) (*DiscountValidation, error)
	ListDiscounts() ([]model.Discount, error)
	GetDiscountByID(id uint) (*model.Discount, error)
	CreateDiscount(discount *model.Discount) error
	UpdateDiscount(discount *model.Discount) error
	DeleteDiscount(id uint) error
	DeactivateExpired() (int64, error)
}

type discountService struct {
	discountRepo repository.DiscountRepository
}

func NewDiscountService(discountRepo repository.DiscountRepository) DiscountService {
	return &discountService{discountRepo: discountRepo}
}

// Validate checks a code against the current time and cart subtotal and
// returns the discount amount. The failure order matches what the
// storefront surfaces: unknown code, inactive, window, min purchase.
func (s *discountService) Validate(code string, subtotal float64) (*DiscountValidation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	logger.Debug("Validating discount code", map[string]interface{}{
		"code":     normalized,
		"subtotal": subtotal,
	})

	discount, err := s.discountRepo.FindByCode(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Discount code not found", map[string]interface{}{
				"code": normalized,
			})
			return nil, ErrDiscountNotFound
		}
		logger.Error("Failed to fetch discount code", err, map[string]interface{}{
			"code": normalized,
		})
		return nil, err
	}

	if !discount.IsActive {
		logger.Warn("Discount code inactive", map[string]interface{}{
			"code": normalized,
		})
		return nil, ErrDiscountInactive
	}

	now := time.Now()
	if discount.ValidFrom != nil && now.Before(*discount.ValidFrom) {
		return nil, ErrDiscountNotStarted
	}
	if discount.ValidUntil != nil && now.After(*discount.ValidUntil) {
		return nil, ErrDiscountExpired
	}

	if subtotal < discount.MinPurchase {
		logger.Warn("Discount code below minimum purchase", map[string]interface{}{
			"code":         normalized,
			"min_purchase": discount.MinPurchase,
			"subtotal":     subtotal,
		})
		return nil, &MinPurchaseError{MinPurchase: discount.MinPurchase, Subtotal: subtotal}
	}

	validation := &DiscountValidation{
		Code:   discount.Code,
		Type:   discount.Type,
		Value:  discount.Value,
		Amount: discount.AmountFor(subtotal),
	}

	logger.Info("Discount code validated", map[string]interface{}{
		"code":   validation.Code,
		"amount": validation.Amount,
	})
	return validation, nil
}

func (s *discountService) ListDiscounts() ([]model.Discount, error) {
	return s.discountRepo.FindAll()
}

func (s *discountService) GetDiscountByID(id uint) (*model.Discount, error) {
	discount, err := s.discountRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}
	return discount, nil
}

func (s *discountService) CreateDiscount(discount *model.Discount) error {
	discount.Code = strings.ToUpper(strings.TrimSpace(discount.Code))

	logger.Info("Creating discount", map[string]interface{}{
		"code": discount.Code,
		"type": discount.Type,
	})

	if err := validateDiscountDefinition(discount); err != nil {
		return err
	}

	existing, err := s.discountRepo.FindByCode(discount.Code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing discount code", err, map[string]interface{}{
			"code": discount.Code,
		})
		return err
	}
	if existing != nil {
		logger.Warn("Discount creation failed: code already exists", map[string]interface{}{
			"code": discount.Code,
		})
		return ErrDiscountCodeExists
	}

	if err := s.discountRepo.Create(discount); err != nil {
		logger.Error("Failed to create discount", err, map[string]interface{}{
			"code": discount.Code,
		})
		return err
	}

	logger.Info("Discount created", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})
	return nil
}

func (s *discountService) UpdateDiscount(discount *model.Discount) error {
	discount.Code = strings.ToUpper(strings.TrimSpace(discount.Code))

	logger.Info("Updating discount", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})

	if err := validateDiscountDefinition(discount); err != nil {
		return err
	}

	existing, err := s.discountRepo.FindByID(discount.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscountNotFound
		}
		return err
	}
	discount.CreatedAt = existing.CreatedAt

	if err := s.discountRepo.Update(discount); err != nil {
		logger.Error("Failed to update discount", err, map[string]interface{}{
			"discount_id": discount.ID,
		})
		return err
	}

	logger.Info("Discount updated", map[string]interface{}{
		"discount_id": discount.ID,
	})
	return nil
}

func (s *discountService) DeleteDiscount(id uint) error {
	logger.Info("Deleting discount", map[string]interface{}{
		"discount_id": id,
	})

	if _, err := s.discountRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscountNotFound
		}
		return err
	}

	return s.discountRepo.Delete(id)
}

// DeactivateExpired flips off codes past their valid_until. Runs from
// the nightly scheduler.
func (s *discountService) DeactivateExpired() (int64, error) {
	count, err := s.discountRepo.DeactivateExpired(time.Now())
	if err != nil {
		logger.Error("Failed to deactivate expired discounts", err)
		return 0, err
	}

	if count > 0 {
		logger.Info("Expired discounts deactivated", map[string]interface{}{
			"count": count,
		})
	}
	return count, nil
}

func validateDiscountDefinition(discount *model.Discount) error {
	if discount.Code == "" {
		return ErrInvalidDiscount
	}
	switch discount.Type {
	case model.DiscountPercentage:
		if discount.Value <= 0 || discount.Value > 100 {
			return ErrInvalidDiscount
		}
	case model.DiscountFixed:
		if discount.Value <= 0 {
			return ErrInvalidDiscount
		}
	default:
		return ErrInvalidDiscount
	}
	return nil
}
