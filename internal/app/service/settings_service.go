package service

import (
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
)

var ErrInvalidSettings = errors.New("invalid shop settings")

type SettingsService interface {
	GetSettings() (*model.ShippingSettings, error)
	UpdateSettings(updated *model.ShippingSettings) (*model.ShippingSettings, error)
}

type settingsService struct {
	settingsRepo repository.SettingsRepository
}

func NewSettingsService(settingsRepo repository.SettingsRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo}
}

func (s *settingsService) GetSettings() (*model.ShippingSettings, error) {
	return s.settingsRepo.Get()
}

// UpdateSettings writes the singleton row, keeping whatever fields the
// caller left at their zero value untouched except fees, which may
// legitimately be zero.
func (s *settingsService) UpdateSettings(updated *model.ShippingSettings) (*model.ShippingSettings, error) {
	logger.Info("Updating shop settings", map[string]interface{}{
		"delivery_fee": updated.DeliveryFee,
		"pickup_fee":   updated.PickupFee,
	})

	if updated.DeliveryFee < 0 || updated.PickupFee < 0 {
		return nil, ErrInvalidSettings
	}

	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}

	settings.DeliveryFee = updated.DeliveryFee
	settings.PickupFee = updated.PickupFee
	if updated.WhatsAppNumber != "" {
		settings.WhatsAppNumber = updated.WhatsAppNumber
	}
	if len(updated.PickupLocations) > 0 {
		settings.PickupLocations = updated.PickupLocations
	}

	if err := s.settingsRepo.Update(settings); err != nil {
		logger.Error("Failed to update shop settings", err, nil)
		return nil, err
	}

	logger.Info("Shop settings updated", map[string]interface{}{
		"settings_id": settings.ID,
	})
	return settings, nil
}
