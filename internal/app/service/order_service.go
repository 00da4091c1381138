package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidDeliveryType   = errors.New("invalid delivery type")
	ErrAddressRequired       = errors.New("delivery address is required for delivery orders")
	ErrPickupDetailsRequired = errors.New("pickup location and date are required for pickup orders")
	ErrInvalidTransition     = errors.New("invalid order status transition")
)

// CreateOrderInput carries everything checkout submits besides the cart
// itself, which is read from the user's server-side cart.
type CreateOrderInput struct {
	DeliveryType    model.DeliveryType
	AddressID       *uint
	DeliveryAddress string
	PickupLocation  string
	PickupDate      *time.Time
	Notes           string
	DiscountCode    string
}

type OrderService interface {
	CreateOrder(userID uint, input CreateOrderInput) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrder(userID, orderID uint) (*model.Order, error)
	AttachPaymentProof(userID, orderID uint, proofURL string) (*model.Order, error)
	ListAllOrders(filter repository.OrderFilter) ([]model.Order, error)
	GetOrderByID(orderID uint) (*model.Order, error)
	GetOrderByNumber(orderNumber string) (*model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
	ExportCSV(filter repository.OrderFilter) ([]byte, error)
	ExportXLSX(filter repository.OrderFilter) ([]byte, error)
}

type orderService struct {
	orderRepo       repository.OrderRepository
	cartRepo        repository.CartRepository
	productRepo     repository.ProductRepository
	addressRepo     repository.AddressRepository
	settingsRepo    repository.SettingsRepository
	discountService DiscountService
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	settingsRepo repository.SettingsRepository,
	discountService DiscountService,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		cartRepo:        cartRepo,
		productRepo:     productRepo,
		addressRepo:     addressRepo,
		settingsRepo:    settingsRepo,
		discountService: discountService,
	}
}

// CreateOrder turns the user's cart into an order. Lines keep the unit
// price captured when they entered the cart, totals are recomputed
// server-side, and the cart is cleared once the order exists.
func (s *orderService) CreateOrder(userID uint, input CreateOrderInput) (*model.Order, error) {
	logger.Info("Creating order", map[string]interface{}{
		"user_id":       userID,
		"delivery_type": input.DeliveryType,
		"discount_code": input.DiscountCode,
	})

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch cart for order creation", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	if len(cartItems) == 0 {
		logger.Warn("Order creation rejected: empty cart", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrEmptyCart
	}

	deliveryAddress, pickupLocation, err := s.resolveDestination(userID, &input)
	if err != nil {
		return nil, err
	}

	// Stock is checked against the full cart before anything is written.
	for i := range cartItems {
		product, err := s.productRepo.FindByID(cartItems[i].ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Order creation rejected: cart references missing product", map[string]interface{}{
					"user_id":    userID,
					"product_id": cartItems[i].ProductID,
				})
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, ErrProductNotAvailable
		}
		if product.StockQuantity < cartItems[i].Quantity {
			logger.Warn("Order creation rejected: insufficient stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": product.ID,
				"requested":  cartItems[i].Quantity,
				"available":  product.StockQuantity,
			})
			return nil, ErrInsufficientStock
		}
	}

	lines := make([]pricing.Line, len(cartItems))
	for i := range cartItems {
		lines[i] = pricing.Line{
			UnitPrice: cartItems[i].UnitPrice,
			Quantity:  cartItems[i].Quantity,
		}
	}
	subtotal := pricing.Subtotal(lines)

	settings, err := s.settingsRepo.Get()
	if err != nil {
		logger.Error("Failed to load shipping settings for order", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	shippingFee := pricing.ShippingFee(input.DeliveryType, *settings)

	var discountAmount float64
	var discountCode string
	if input.DiscountCode != "" {
		validation, err := s.discountService.Validate(input.DiscountCode, subtotal)
		if err != nil {
			logger.Warn("Order creation rejected: discount validation failed", map[string]interface{}{
				"user_id": userID,
				"code":    input.DiscountCode,
				"error":   err.Error(),
			})
			return nil, err
		}
		discountAmount = validation.Amount
		discountCode = validation.Code
	}

	orderNumber, err := s.nextOrderNumber(time.Now())
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		TotalAmount:     subtotal,
		ShippingFee:     shippingFee,
		DiscountAmount:  discountAmount,
		DiscountCode:    discountCode,
		FinalAmount:     pricing.Total(subtotal, shippingFee, discountAmount),
		DeliveryType:    input.DeliveryType,
		DeliveryAddress: deliveryAddress,
		PickupLocation:  pickupLocation,
		PickupDate:      input.PickupDate,
		Notes:           input.Notes,
		Status:          model.OrderStatusPending,
	}
	for i := range cartItems {
		order.OrderItems = append(order.OrderItems, model.OrderItem{
			ProductID:     cartItems[i].ProductID,
			ProductName:   cartItems[i].Product.Name,
			Quantity:      cartItems[i].Quantity,
			UnitPrice:     cartItems[i].UnitPrice,
			Customization: cartItems[i].Customization,
		})
	}

	if err := s.orderRepo.Create(order); err != nil {
		logger.Error("Failed to create order", err, map[string]interface{}{
			"user_id":      userID,
			"order_number": orderNumber,
		})
		return nil, err
	}

	for i := range cartItems {
		if err := s.productRepo.UpdateStock(cartItems[i].ProductID, -cartItems[i].Quantity); err != nil {
			logger.Error("Failed to decrement stock after order", err, map[string]interface{}{
				"order_id":   order.ID,
				"product_id": cartItems[i].ProductID,
			})
		}
	}

	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		logger.Error("Failed to clear cart after order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"final_amount": order.FinalAmount,
	})
	return order, nil
}

// resolveDestination validates the delivery side of checkout and returns
// the address text or pickup location to store on the order.
func (s *orderService) resolveDestination(userID uint, input *CreateOrderInput) (string, string, error) {
	switch input.DeliveryType {
	case model.DeliveryTypeDelivery:
		if input.AddressID != nil {
			address, err := s.addressRepo.FindByID(*input.AddressID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return "", "", ErrAddressNotFound
				}
				return "", "", err
			}
			if address.UserID != userID {
				logger.Warn("Order creation rejected: address ownership mismatch", map[string]interface{}{
					"user_id":    userID,
					"address_id": address.ID,
				})
				return "", "", ErrAddressNotFound
			}
			formatted := fmt.Sprintf("%s (%s), %s, %s %s",
				address.Recipient, address.Phone, address.FullAddress, address.City, address.PostalCode)
			return formatted, "", nil
		}
		if input.DeliveryAddress == "" {
			return "", "", ErrAddressRequired
		}
		return input.DeliveryAddress, "", nil

	case model.DeliveryTypePickup:
		if input.PickupLocation == "" || input.PickupDate == nil {
			return "", "", ErrPickupDetailsRequired
		}
		return "", input.PickupLocation, nil

	default:
		return "", "", ErrInvalidDeliveryType
	}
}

// nextOrderNumber builds MB<yyyymmdd><seq> where seq restarts daily.
func (s *orderService) nextOrderNumber(now time.Time) (string, error) {
	count, err := s.orderRepo.CountCreatedOn(now)
	if err != nil {
		logger.Error("Failed to compute next order number", err, nil)
		return "", err
	}
	return fmt.Sprintf("MB%s%04d", now.Format("20060102"), count+1), nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})

	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

// GetOrder enforces ownership: a missing order and someone else's order
// look the same to the caller.
func (s *orderService) GetOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"owner_id": order.UserID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) AttachPaymentProof(userID, orderID uint, proofURL string) (*model.Order, error) {
	logger.Info("Attaching payment proof", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	order, err := s.GetOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	order.PaymentProofURL = proofURL
	if err := s.orderRepo.Update(order); err != nil {
		logger.Error("Failed to attach payment proof", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	logger.Info("Payment proof attached", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

func (s *orderService) ListAllOrders(filter repository.OrderFilter) ([]model.Order, error) {
	return s.orderRepo.FindAll(filter)
}

func (s *orderService) GetOrderByID(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrderByNumber looks an order up by the MB number printed in the
// customer's WhatsApp confirmation message.
func (s *orderService) GetOrderByNumber(orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByOrderNumber(orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the allowed status path.
func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		logger.Warn("Order status transition rejected", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.UpdateStatus(orderID, status); err != nil {
		return nil, err
	}
	order.Status = status

	logger.Info("Order status updated", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       status,
	})
	return order, nil
}

var exportHeader = []string{
	"Order Number", "Date", "Customer", "Total Amount",
	"Shipping Fee", "Final Amount", "Delivery Type", "Status",
}

func exportRow(order *model.Order) []string {
	return []string{
		order.OrderNumber,
		order.CreatedAt.Format("2006-01-02 15:04"),
		order.User.FullName,
		strconv.FormatFloat(order.TotalAmount, 'f', 0, 64),
		strconv.FormatFloat(order.ShippingFee, 'f', 0, 64),
		strconv.FormatFloat(order.FinalAmount, 'f', 0, 64),
		string(order.DeliveryType),
		string(order.Status),
	}
}

func (s *orderService) ExportCSV(filter repository.OrderFilter) ([]byte, error) {
	logger.Info("Exporting orders as CSV", map[string]interface{}{
		"status": filter.Status,
	})

	orders, err := s.orderRepo.FindAll(filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := writer.Write(exportRow(&orders[i])); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.Error("Failed to write CSV export", err, nil)
		return nil, err
	}

	logger.Info("CSV export built", map[string]interface{}{
		"orders": len(orders),
	})
	return buf.Bytes(), nil
}

func (s *orderService) ExportXLSX(filter repository.OrderFilter) ([]byte, error) {
	logger.Info("Exporting orders as XLSX", map[string]interface{}{
		"status": filter.Status,
	})

	orders, err := s.orderRepo.FindAll(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for row := range orders {
		values := exportRow(&orders[row])
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		logger.Error("Failed to write XLSX export", err, nil)
		return nil, err
	}

	logger.Info("XLSX export built", map[string]interface{}{
		"orders": len(orders),
	})
	return buf.Bytes(), nil
}
