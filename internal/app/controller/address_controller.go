package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
)

type AddressController struct {
	addressService service.AddressService
}

func NewAddressController(addressService service.AddressService) *AddressController {
	return &AddressController{
		addressService: addressService,
	}
}

type AddressRequest struct {
	Label       string `json:"label" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	FullAddress string `json:"full_address" binding:"required"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	IsDefault   bool   `json:"is_default"`
}

func (req *AddressRequest) toModel() *model.Address {
	return &model.Address{
		Label:       req.Label,
		Recipient:   req.Recipient,
		Phone:       req.Phone,
		FullAddress: req.FullAddress,
		City:        req.City,
		PostalCode:  req.PostalCode,
		IsDefault:   req.IsDefault,
	}
}

// ListAddresses returns the user's saved addresses
// GET /api/v1/addresses
func (ctrl *AddressController) ListAddresses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	addresses, err := ctrl.addressService.GetUserAddresses(userID)
	if err != nil {
		log.Error("Failed to fetch addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list addresses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress saves a new address
// POST /api/v1/addresses
func (ctrl *AddressController) CreateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create address request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid address details")
		return
	}

	address := req.toModel()
	if err := ctrl.addressService.CreateAddress(userID, address); err != nil {
		log.Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create address")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address saved",
		"address": address,
	})
}

// UpdateAddress edits a saved address
// PUT /api/v1/addresses/:id
func (ctrl *AddressController) UpdateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid address ID")
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid address details")
		return
	}

	if err := ctrl.addressService.UpdateAddress(userID, uint(addressID), req.toModel()); err != nil {
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			apperrors.NotFound(c, apperrors.AddressNotFound, "Address not found")
		case errors.Is(err, service.ErrUnauthorizedAccess):
			apperrors.Forbidden(c, "You cannot modify this address")
		default:
			log.Error("Failed to update address", err, map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update address")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated",
	})
}

// DeleteAddress removes a saved address
// DELETE /api/v1/addresses/:id
func (ctrl *AddressController) DeleteAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid address ID")
		return
	}

	if err := ctrl.addressService.DeleteAddress(userID, uint(addressID)); err != nil {
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			apperrors.NotFound(c, apperrors.AddressNotFound, "Address not found")
		case errors.Is(err, service.ErrUnauthorizedAccess):
			apperrors.Forbidden(c, "You cannot delete this address")
		default:
			log.Error("Failed to delete address", err, map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete address")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address deleted",
	})
}

// SetDefaultAddress marks one address as the default
// PUT /api/v1/addresses/:id/default
func (ctrl *AddressController) SetDefaultAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid address ID")
		return
	}

	if err := ctrl.addressService.SetDefaultAddress(userID, uint(addressID)); err != nil {
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			apperrors.NotFound(c, apperrors.AddressNotFound, "Address not found")
		case errors.Is(err, service.ErrUnauthorizedAccess):
			apperrors.Forbidden(c, "You cannot modify this address")
		default:
			log.Error("Failed to set default address", err, map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update address")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Default address updated",
	})
}
