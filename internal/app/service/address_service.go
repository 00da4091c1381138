package service

import (
	"errors"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAddressNotFound    = errors.New("address not found")
	ErrUnauthorizedAccess = errors.New("unauthorized access to address")
)

type AddressService interface {
	GetUserAddresses(userID uint) ([]model.Address, error)
	CreateAddress(userID uint, address *model.Address) error
	UpdateAddress(userID, addressID uint, updatedAddress *model.Address) error
	DeleteAddress(userID, addressID uint) error
	SetDefaultAddress(userID, addressID uint) error
}

type addressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{
		addressRepo: addressRepo,
	}
}

func (s *addressService) GetUserAddresses(userID uint) ([]model.Address, error) {
	logger.Debug("Fetching user addresses", map[string]interface{}{
		"user_id": userID,
	})

	addresses, err := s.addressRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("User addresses fetched", map[string]interface{}{
		"user_id": userID,
		"count":   len(addresses),
	})
	return addresses, nil
}

func (s *addressService) CreateAddress(userID uint, address *model.Address) error {
	logger.Info("Creating address", map[string]interface{}{
		"user_id":   userID,
		"label":     address.Label,
		"recipient": address.Recipient,
	})

	address.UserID = userID

	// The first address a user saves becomes their default
	existingAddresses, err := s.addressRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to check existing addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	if len(existingAddresses) == 0 {
		address.IsDefault = true
	}

	if err := s.addressRepo.Create(address); err != nil {
		logger.Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	// A new default displaces the previous one
	if address.IsDefault && len(existingAddresses) > 0 {
		if err := s.addressRepo.SetDefault(userID, address.ID); err != nil {
			logger.Error("Failed to set new address as default", err, map[string]interface{}{
				"user_id":    userID,
				"address_id": address.ID,
			})
			return err
		}
	}

	logger.Info("Address created successfully", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    userID,
	})
	return nil
}

func (s *addressService) UpdateAddress(userID, addressID uint, updatedAddress *model.Address) error {
	logger.Info("Updating address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	address, err := s.findOwnedAddress(userID, addressID)
	if err != nil {
		return err
	}

	address.Label = updatedAddress.Label
	address.Recipient = updatedAddress.Recipient
	address.Phone = updatedAddress.Phone
	address.FullAddress = updatedAddress.FullAddress
	address.City = updatedAddress.City
	address.PostalCode = updatedAddress.PostalCode

	if updatedAddress.IsDefault && !address.IsDefault {
		if err := s.addressRepo.SetDefault(userID, addressID); err != nil {
			logger.Error("Failed to set address as default", err, map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			return err
		}
		address.IsDefault = true
	}

	if err := s.addressRepo.Update(address); err != nil {
		logger.Error("Failed to update address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return err
	}

	logger.Info("Address updated successfully", map[string]interface{}{
		"address_id": addressID,
	})
	return nil
}

func (s *addressService) DeleteAddress(userID, addressID uint) error {
	logger.Info("Deleting address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	if _, err := s.findOwnedAddress(userID, addressID); err != nil {
		return err
	}

	if err := s.addressRepo.Delete(addressID); err != nil {
		logger.Error("Failed to delete address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return err
	}

	logger.Info("Address deleted successfully", map[string]interface{}{
		"address_id": addressID,
	})
	return nil
}

func (s *addressService) SetDefaultAddress(userID, addressID uint) error {
	logger.Info("Setting default address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	if _, err := s.findOwnedAddress(userID, addressID); err != nil {
		return err
	}

	if err := s.addressRepo.SetDefault(userID, addressID); err != nil {
		logger.Error("Failed to set default address", err, map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
		})
		return err
	}

	logger.Info("Default address set successfully", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})
	return nil
}

func (s *addressService) findOwnedAddress(userID, addressID uint) (*model.Address, error) {
	address, err := s.addressRepo.FindByID(addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Address not found", map[string]interface{}{
				"address_id": addressID,
			})
			return nil, ErrAddressNotFound
		}
		logger.Error("Failed to fetch address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return nil, err
	}

	if address.UserID != userID {
		logger.Warn("Address access denied: ownership mismatch", map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
			"owner_id":   address.UserID,
		})
		return nil, ErrUnauthorizedAccess
	}
	return address, nil
}
