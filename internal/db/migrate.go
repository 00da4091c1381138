package db

import (
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Discount{},
		&model.Address{},
		&model.ShippingSettings{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedShippingSettings(); err != nil {
		logger.Error("Failed to seed shipping settings during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// seedShippingSettings creates the singleton settings row when missing.
// Catalog seeding lives in cmd/seed; the settings row is required for
// checkout pricing so it belongs with migration.
func seedShippingSettings() error {
	var count int64
	if err := DB.Model(&model.ShippingSettings{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Shipping settings already present, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	settings := model.DefaultShippingSettings()
	if err := DB.Create(&settings).Error; err != nil {
		logger.Error("Failed to create shipping settings", err)
		return err
	}

	logger.Info("Shipping settings seeded successfully", map[string]interface{}{
		"delivery_fee": settings.DeliveryFee,
	})
	return nil
}
