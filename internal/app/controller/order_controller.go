package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/storage"
	"github.com/milkbites/milkbites-backend/internal/ws"
)

type OrderController struct {
	orderService    service.OrderService
	settingsService service.SettingsService
	storage         *storage.S3Storage
	hub             *ws.Hub
}

func NewOrderController(
	orderService service.OrderService,
	settingsService service.SettingsService,
	s3 *storage.S3Storage,
	hub *ws.Hub,
) *OrderController {
	return &OrderController{
		orderService:    orderService,
		settingsService: settingsService,
		storage:         s3,
		hub:             hub,
	}
}

type CreateOrderRequest struct {
	DeliveryType    model.DeliveryType `json:"delivery_type" binding:"required"`
	AddressID       *uint              `json:"address_id"`
	DeliveryAddress string             `json:"delivery_address"`
	PickupLocation  string             `json:"pickup_location"`
	PickupDate      *time.Time         `json:"pickup_date"`
	Notes           string             `json:"notes"`
	DiscountCode    string             `json:"discount_code"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// whatsAppLink builds the wa.me URL with the prefilled confirmation
// message the customer sends after transferring payment.
func (ctrl *OrderController) whatsAppLink(order *model.Order, customerName string) string {
	number := ""
	if settings, err := ctrl.settingsService.GetSettings(); err == nil {
		number = settings.WhatsAppNumber
	}
	if number == "" {
		return ""
	}

	message := fmt.Sprintf(
		"Hi, I'm %s. I just placed order %s with a total of %.0f and have uploaded my payment proof.",
		customerName, order.OrderNumber, order.FinalAmount,
	)
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}

// CreateOrder places an order from the user's cart
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create order request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid order details")
		return
	}

	order, err := ctrl.orderService.CreateOrder(userID, service.CreateOrderInput{
		DeliveryType:    req.DeliveryType,
		AddressID:       req.AddressID,
		DeliveryAddress: req.DeliveryAddress,
		PickupLocation:  req.PickupLocation,
		PickupDate:      req.PickupDate,
		Notes:           req.Notes,
		DiscountCode:    req.DiscountCode,
	})
	if err != nil {
		ctrl.respondCreateOrderError(c, err, userID)
		return
	}

	log.Info("Order created", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})

	// The cart is empty now, push the zero count
	if ctrl.hub != nil {
		ctrl.hub.NotifyCartCount(ws.UserKey(userID), 0)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created",
		"order":   order,
	})
}

func (ctrl *OrderController) respondCreateOrderError(c *gin.Context, err error, userID uint) {
	log := middleware.GetLoggerFromContext(c)

	var minPurchaseErr *service.MinPurchaseError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
	case errors.Is(err, service.ErrAddressRequired):
		apperrors.BadRequest(c, apperrors.OrderAddressRequired, "A delivery address is required")
	case errors.Is(err, service.ErrPickupDetailsRequired):
		apperrors.BadRequest(c, apperrors.OrderPickupRequired, "Pickup location and date are required")
	case errors.Is(err, service.ErrInvalidDeliveryType):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown delivery type")
	case errors.Is(err, service.ErrAddressNotFound):
		apperrors.NotFound(c, apperrors.AddressNotFound, "Address not found")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.BadRequest(c, apperrors.ProductNotFound, "A product in your cart is no longer available")
	case errors.Is(err, service.ErrProductNotAvailable):
		apperrors.BadRequest(c, apperrors.ProductInactive, "A product in your cart is no longer available")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.BadRequest(c, apperrors.ProductOutOfStock, "Not enough stock for a product in your cart")
	case errors.Is(err, service.ErrDiscountNotFound):
		apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount code not found")
	case errors.Is(err, service.ErrDiscountInactive):
		apperrors.BadRequest(c, apperrors.DiscountInactive, "This discount code is not active")
	case errors.Is(err, service.ErrDiscountExpired):
		apperrors.BadRequest(c, apperrors.DiscountExpired, "This discount code has expired")
	case errors.Is(err, service.ErrDiscountNotStarted):
		apperrors.BadRequest(c, apperrors.DiscountNotStarted, "This discount code is not valid yet")
	case errors.As(err, &minPurchaseErr):
		apperrors.BadRequest(c, apperrors.DiscountMinPurchase, minPurchaseErr.Error())
	default:
		log.Error("Failed to create order", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create order")
	}
}

// GetMyOrders returns the authenticated user's order history
// GET /api/v1/orders
func (ctrl *OrderController) GetMyOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one of the user's own orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	order, err := ctrl.orderService.GetOrder(userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to fetch order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UploadPaymentProof stores a transfer screenshot for the order and
// returns the WhatsApp confirmation link
// POST /api/v1/orders/:id/payment-proof
func (ctrl *OrderController) UploadPaymentProof(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Payment proof file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open payment proof upload", err, nil)
		apperrors.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	proofURL, err := ctrl.storage.Upload(c.Request.Context(), storage.FolderPaymentProofs,
		fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File exceeds the maximum upload size")
		case errors.Is(err, storage.ErrInvalidContentType):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WebP images are allowed")
		default:
			log.Error("Failed to upload payment proof", err, map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to upload payment proof")
		}
		return
	}

	order, err := ctrl.orderService.AttachPaymentProof(userID, uint(orderID), proofURL)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to attach payment proof", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order")
		return
	}

	log.Info("Payment proof uploaded", map[string]interface{}{
		"user_id":  userID,
		"order_id": order.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":           "Payment proof uploaded",
		"order":             order,
		"whatsapp_link":     ctrl.whatsAppLink(order, order.User.FullName),
		"payment_proof_url": proofURL,
	})
}

func orderFilterFromQuery(c *gin.Context) repository.OrderFilter {
	filter := repository.OrderFilter{
		Status:       c.Query("status"),
		DeliveryType: c.Query("delivery_type"),
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		// Exclusive upper bound, include the whole day
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter
}

// ListOrders returns all orders for the back office
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := orderFilterFromQuery(c)
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Unknown order status")
		return
	}

	orders, err := ctrl.orderService.ListAllOrders(filter)
	if err != nil {
		log.Error("Failed to fetch orders for admin", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderAdmin returns any order by ID
// GET /api/v1/admin/orders/:id
func (ctrl *OrderController) GetOrderAdmin(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	order, err := ctrl.orderService.GetOrderByID(uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetOrderByNumber returns an order by its printed number, used when
// matching WhatsApp confirmations against the back office
// GET /api/v1/admin/orders/number/:orderNumber
func (ctrl *OrderController) GetOrderByNumber(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	order, err := ctrl.orderService.GetOrderByNumber(orderNumber)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UpdateOrderStatus moves an order along the status path
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid status details")
		return
	}
	if !model.ValidStatus(string(req.Status)) {
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Unknown order status")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(uint(orderID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.BadRequest(c, apperrors.OrderInvalidTransition, "This status change is not allowed")
		default:
			log.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order")
		}
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}

// ExportCSV downloads the filtered order list as CSV
// GET /api/v1/admin/orders/export/csv
func (ctrl *OrderController) ExportCSV(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	data, err := ctrl.orderService.ExportCSV(orderFilterFromQuery(c))
	if err != nil {
		log.Error("Failed to export orders as CSV", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportXLSX downloads the filtered order list as a spreadsheet
// GET /api/v1/admin/orders/export/xlsx
func (ctrl *OrderController) ExportXLSX(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	data, err := ctrl.orderService.ExportXLSX(orderFilterFromQuery(c))
	if err != nil {
		log.Error("Failed to export orders as XLSX", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
