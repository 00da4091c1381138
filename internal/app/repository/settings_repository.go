package repository

import (
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

type SettingsRepository interface {
	Get() (*model.ShippingSettings, error)
	Update(settings *model.ShippingSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the singleton settings row, creating the default row when
// the table is empty.
func (r *settingsRepository) Get() (*model.ShippingSettings, error) {
	logger.Debug("Loading shipping settings from database", nil)

	var settings model.ShippingSettings
	err := r.db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.DefaultShippingSettings()
		if err := r.db.Create(&settings).Error; err != nil {
			logger.Error("Failed to create default shipping settings", err, nil)
			return nil, err
		}
		logger.Info("Default shipping settings created", map[string]interface{}{
			"delivery_fee": settings.DeliveryFee,
		})
		return &settings, nil
	}
	if err != nil {
		logger.Error("Failed to load shipping settings from database", err, nil)
		return nil, err
	}

	return &settings, nil
}

func (r *settingsRepository) Update(settings *model.ShippingSettings) error {
	logger.Debug("Updating shipping settings in database", map[string]interface{}{
		"settings_id":  settings.ID,
		"delivery_fee": settings.DeliveryFee,
	})

	if err := r.db.Save(settings).Error; err != nil {
		logger.Error("Failed to update shipping settings in database", err, map[string]interface{}{
			"settings_id": settings.ID,
		})
		return err
	}

	logger.Debug("Shipping settings updated in database", map[string]interface{}{
		"settings_id":  settings.ID,
		"delivery_fee": settings.DeliveryFee,
	})
	return nil
}
