package repository

import (
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

type DiscountRepository interface {
	Create(discount *model.Discount) error
	FindAll() ([]model.Discount, error)
	FindByID(id uint) (*model.Discount, error)
	FindByCode(code string) (*model.Discount, error)
	Update(discount *model.Discount) error
	Delete(id uint) error
	DeactivateExpired(now time.Time) (int64, error)
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) Create(discount *model.Discount) error {
	logger.Debug("Creating discount in database", map[string]interface{}{
		"code": discount.Code,
		"type": discount.Type,
	})

	if err := r.db.Create(discount).Error; err != nil {
		logger.Error("Failed to create discount in database", err, map[string]interface{}{
			"code": discount.Code,
		})
		return err
	}

	logger.Debug("Discount created in database", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})
	return nil
}

func (r *discountRepository) FindAll() ([]model.Discount, error) {
	logger.Debug("Finding all discounts in database", nil)

	var discounts []model.Discount
	if err := r.db.Order("created_at DESC").Find(&discounts).Error; err != nil {
		logger.Error("Failed to find discounts in database", err, nil)
		return nil, err
	}

	logger.Debug("Discounts found in database", map[string]interface{}{
		"count": len(discounts),
	})
	return discounts, nil
}

func (r *discountRepository) FindByID(id uint) (*model.Discount, error) {
	logger.Debug("Finding discount by ID in database", map[string]interface{}{
		"discount_id": id,
	})

	var discount model.Discount
	if err := r.db.First(&discount, id).Error; err != nil {
		logger.Error("Failed to find discount by ID in database", err, map[string]interface{}{
			"discount_id": id,
		})
		return nil, err
	}

	logger.Debug("Discount found by ID in database", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})
	return &discount, nil
}

func (r *discountRepository) FindByCode(code string) (*model.Discount, error) {
	logger.Debug("Finding discount by code in database", map[string]interface{}{
		"code": code,
	})

	var discount model.Discount
	if err := r.db.Where("code = ?", code).First(&discount).Error; err != nil {
		logger.Error("Failed to find discount by code in database", err, map[string]interface{}{
			"code": code,
		})
		return nil, err
	}

	logger.Debug("Discount found by code in database", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})
	return &discount, nil
}

func (r *discountRepository) Update(discount *model.Discount) error {
	logger.Debug("Updating discount in database", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})

	if err := r.db.Save(discount).Error; err != nil {
		logger.Error("Failed to update discount in database", err, map[string]interface{}{
			"discount_id": discount.ID,
			"code":        discount.Code,
		})
		return err
	}

	logger.Debug("Discount updated in database", map[string]interface{}{
		"discount_id": discount.ID,
		"code":        discount.Code,
	})
	return nil
}

func (r *discountRepository) Delete(id uint) error {
	logger.Debug("Deleting discount from database", map[string]interface{}{
		"discount_id": id,
	})

	if err := r.db.Delete(&model.Discount{}, id).Error; err != nil {
		logger.Error("Failed to delete discount from database", err, map[string]interface{}{
			"discount_id": id,
		})
		return err
	}

	logger.Debug("Discount deleted from database", map[string]interface{}{
		"discount_id": id,
	})
	return nil
}

// DeactivateExpired flips is_active off for discounts past their
// valid_until. Called by the nightly sweep.
func (r *discountRepository) DeactivateExpired(now time.Time) (int64, error) {
	logger.Debug("Deactivating expired discounts in database", map[string]interface{}{
		"now": now.Format(time.RFC3339),
	})

	result := r.db.Model(&model.Discount{}).
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, now).
		Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate expired discounts in database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired discounts deactivated in database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
