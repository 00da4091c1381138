package repository

import (
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"gorm.io/gorm"
)

// OrderFilter narrows admin order listings and exports.
type OrderFilter struct {
	Status       string
	DeliveryType string
	From         *time.Time
	To           *time.Time
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByOrderNumber(orderNumber string) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindAll(filter OrderFilter) ([]model.Order, error)
	CountCreatedOn(day time.Time) (int64, error)
	Update(order *model.Order) error
	UpdateStatus(id uint, status model.OrderStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Product")
	}).Preload("User")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_number":  order.OrderNumber,
		"user_id":       order.UserID,
		"final_amount":  order.FinalAmount,
		"delivery_type": order.DeliveryType,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_number":  order.OrderNumber,
			"user_id":       order.UserID,
			"delivery_type": order.DeliveryType,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) FindByOrderNumber(orderNumber string) (*model.Order, error) {
	logger.Debug("Finding order by order number in database", map[string]interface{}{
		"order_number": orderNumber,
	})

	var order model.Order
	if err := r.preloadOrder().Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		logger.Error("Failed to find order by order number in database", err, map[string]interface{}{
			"order_number": orderNumber,
		})
		return nil, err
	}

	logger.Debug("Order found by order number in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.preloadOrder().Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) FindAll(filter OrderFilter) ([]model.Order, error) {
	logger.Debug("Finding orders with filter in database", map[string]interface{}{
		"status":        filter.Status,
		"delivery_type": filter.DeliveryType,
	})

	query := r.preloadOrder()

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DeliveryType != "" {
		query = query.Where("delivery_type = ?", filter.DeliveryType)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter in database", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, err
	}

	logger.Debug("Orders found with filter in database", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

// CountCreatedOn counts orders created on the given calendar day. Feeds
// the daily sequence part of order numbers.
func (r *orderRepository) CountCreatedOn(day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	if err := r.db.Model(&model.Order{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error; err != nil {
		logger.Error("Failed to count orders created on day", err, map[string]interface{}{
			"day": start.Format("2006-01-02"),
		})
		return 0, err
	}

	return count, nil
}

func (r *orderRepository) Update(order *model.Order) error {
	logger.Debug("Updating order in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})

	if err := r.db.Save(order).Error; err != nil {
		logger.Error("Failed to update order in database", err, map[string]interface{}{
			"order_id": order.ID,
			"user_id":  order.UserID,
		})
		return err
	}

	logger.Debug("Order updated in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	return nil
}

func (r *orderRepository) UpdateStatus(id uint, status model.OrderStatus) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	if err := r.db.Model(&model.Order{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		logger.Error("Failed to update order status in database", err, map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return err
	}

	logger.Debug("Order status updated in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})
	return nil
}
