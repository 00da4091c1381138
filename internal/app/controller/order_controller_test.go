package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderControllerFixture struct {
	controller *OrderController
	router     *gin.Engine
	testDB     *gorm.DB
	user       *model.User
	product    *model.Product
}

func setupOrderControllerTest(t *testing.T) *orderControllerFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	addressRepo := repository.NewAddressRepository(testDB)
	settingsRepo := repository.NewSettingsRepository(testDB)
	discountRepo := repository.NewDiscountRepository(testDB)

	discountService := service.NewDiscountService(discountRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, addressRepo, settingsRepo, discountService)
	settingsService := service.NewSettingsService(settingsRepo)
	controller := NewOrderController(orderService, settingsService, nil, nil)

	user := &model.User{
		Email:        "test@example.com",
		WhatsApp:     "6281111111111",
		PasswordHash: "hash",
		FullName:     "Test User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Italian Florentine",
		Price:         79000,
		Category:      model.CategoryCookies,
		StockQuantity: 10,
		IsActive:      true,
	}
	testDB.Create(product)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return &orderControllerFixture{
		controller: controller,
		router:     router,
		testDB:     testDB,
		user:       user,
		product:    product,
	}
}

func (f *orderControllerFixture) fillCart(t *testing.T, quantity int) {
	t.Helper()
	cartRepo := repository.NewCartRepository(f.testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{
		UserID:    f.user.ID,
		ProductID: f.product.ID,
		Quantity:  quantity,
		UnitPrice: f.product.Price,
	}))
}

func TestOrderController_CreateOrder_Success(t *testing.T) {
	f := setupOrderControllerTest(t)
	f.fillCart(t, 2)

	f.router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, f.user.ID)
		f.controller.CreateOrder(c)
	})

	body, _ := json.Marshal(CreateOrderRequest{
		DeliveryType:    model.DeliveryTypeDelivery,
		DeliveryAddress: "Jl. Kemang Raya 12, Jakarta",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	order := response["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, float64(158000), order["total_amount"])
	assert.Equal(t, float64(183000), order["final_amount"])
	assert.True(t, strings.HasPrefix(order["order_number"].(string), "MB"))
}

func TestOrderController_CreateOrder_EmptyCart(t *testing.T) {
	f := setupOrderControllerTest(t)

	f.router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, f.user.ID)
		f.controller.CreateOrder(c)
	})

	body, _ := json.Marshal(CreateOrderRequest{
		DeliveryType:    model.DeliveryTypeDelivery,
		DeliveryAddress: "Jl. Kemang Raya 12",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "CART_EMPTY", response["error"])
}

func TestOrderController_CreateOrder_AddressRequired(t *testing.T) {
	f := setupOrderControllerTest(t)
	f.fillCart(t, 1)

	f.router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, f.user.ID)
		f.controller.CreateOrder(c)
	})

	body, _ := json.Marshal(CreateOrderRequest{DeliveryType: model.DeliveryTypeDelivery})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ORDER_ADDRESS_REQUIRED", response["error"])
}

func TestOrderController_GetOrder_NotFound(t *testing.T) {
	f := setupOrderControllerTest(t)

	f.router.GET("/orders/:id", func(c *gin.Context) {
		setUserIDInContext(c, f.user.ID)
		f.controller.GetOrder(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/9999", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (f *orderControllerFixture) createOrder(t *testing.T) *model.Order {
	t.Helper()
	f.fillCart(t, 1)
	order, err := f.controller.orderService.CreateOrder(f.user.ID, service.CreateOrderInput{
		DeliveryType:    model.DeliveryTypeDelivery,
		DeliveryAddress: "Jl. Kemang Raya 12",
	})
	require.NoError(t, err)
	return order
}

func TestOrderController_UpdateOrderStatus(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	f.router.PUT("/admin/orders/:id/status", f.controller.UpdateOrderStatus)

	body, _ := json.Marshal(UpdateOrderStatusRequest{Status: model.OrderStatusConfirmed})
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	updated := response["order"].(map[string]interface{})
	assert.Equal(t, "confirmed", updated["status"])
}

func TestOrderController_UpdateOrderStatus_UnknownStatus(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	f.router.PUT("/admin/orders/:id/status", f.controller.UpdateOrderStatus)

	body := []byte(`{"status": "shipped"}`)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ORDER_INVALID_STATUS", response["error"])
}

func TestOrderController_UpdateOrderStatus_InvalidTransition(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	f.router.PUT("/admin/orders/:id/status", f.controller.UpdateOrderStatus)

	// Pending straight to completed skips the path
	body, _ := json.Marshal(UpdateOrderStatusRequest{Status: model.OrderStatusCompleted})
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ORDER_INVALID_TRANSITION", response["error"])
}

func TestOrderController_GetOrderByNumber(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	f.router.GET("/admin/orders/number/:orderNumber", f.controller.GetOrderByNumber)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/number/"+order.OrderNumber, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	found := response["order"].(map[string]interface{})
	assert.Equal(t, order.OrderNumber, found["order_number"])
}

func TestOrderController_GetOrderByNumber_NotFound(t *testing.T) {
	f := setupOrderControllerTest(t)

	f.router.GET("/admin/orders/number/:orderNumber", f.controller.GetOrderByNumber)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/number/MB209901010042", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderController_ListOrders_UnknownStatusFilter(t *testing.T) {
	f := setupOrderControllerTest(t)

	f.router.GET("/admin/orders", f.controller.ListOrders)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?status=shipped", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_ExportCSV(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	f.router.GET("/admin/orders/export/csv", f.controller.ExportCSV)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/export/csv", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), order.OrderNumber)
}

func TestOrderController_WhatsAppLink(t *testing.T) {
	f := setupOrderControllerTest(t)
	order := f.createOrder(t)

	link := f.controller.whatsAppLink(order, "Test User")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/6281234567890?text="))
	assert.Contains(t, link, order.OrderNumber)
	assert.NotContains(t, link, " ") // message is URL-encoded
}
