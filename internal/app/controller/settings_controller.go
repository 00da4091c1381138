package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
)

type SettingsController struct {
	settingsService service.SettingsService
}

func NewSettingsController(settingsService service.SettingsService) *SettingsController {
	return &SettingsController{
		settingsService: settingsService,
	}
}

type UpdateSettingsRequest struct {
	DeliveryFee     *float64 `json:"delivery_fee"`
	PickupFee       *float64 `json:"pickup_fee"`
	WhatsAppNumber  string   `json:"whatsapp_number"`
	PickupLocations []string `json:"pickup_locations"`
}

// GetSiteSettings returns the public storefront settings
// GET /api/v1/site-settings
func (ctrl *SettingsController) GetSiteSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	settings, err := ctrl.settingsService.GetSettings()
	if err != nil {
		log.Error("Failed to fetch site settings", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delivery_fee":     settings.DeliveryFee,
		"pickup_fee":       settings.PickupFee,
		"whatsapp_number":  settings.WhatsAppNumber,
		"pickup_locations": settings.PickupLocations,
	})
}

// GetSettings returns the full settings row for the back office
// GET /api/v1/admin/settings
func (ctrl *SettingsController) GetSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	settings, err := ctrl.settingsService.GetSettings()
	if err != nil {
		log.Error("Failed to fetch settings for admin", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateSettings edits shipping fees, pickup locations and the shop
// WhatsApp number
// PUT /api/v1/admin/settings
func (ctrl *SettingsController) UpdateSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid settings details")
		return
	}

	current, err := ctrl.settingsService.GetSettings()
	if err != nil {
		log.Error("Failed to load settings for update", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get settings")
		return
	}

	updated := &model.ShippingSettings{
		DeliveryFee:     current.DeliveryFee,
		PickupFee:       current.PickupFee,
		WhatsAppNumber:  req.WhatsAppNumber,
		PickupLocations: model.StringSlice(req.PickupLocations),
	}
	if req.DeliveryFee != nil {
		updated.DeliveryFee = *req.DeliveryFee
	}
	if req.PickupFee != nil {
		updated.PickupFee = *req.PickupFee
	}

	settings, err := ctrl.settingsService.UpdateSettings(updated)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Fees cannot be negative")
			return
		}
		log.Error("Failed to update settings", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update settings")
		return
	}

	log.Info("Shop settings updated", map[string]interface{}{
		"settings_id": settings.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated",
		"settings": settings,
	})
}
