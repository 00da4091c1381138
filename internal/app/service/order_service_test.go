package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type orderServiceFixture struct {
	orderService OrderService
	cartService  CartService
	user         *model.User
	product      *model.Product
	testDB       *gorm.DB
}

func setupOrderServiceTest(t *testing.T) *orderServiceFixture {
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

	discountService := NewDiscountService(discountRepo)
	orderService := NewOrderService(orderRepo, cartRepo, productRepo, addressRepo, settingsRepo, discountService)
	cartService := NewCartService(cartRepo, productRepo)

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

	return &orderServiceFixture{
		orderService: orderService,
		cartService:  cartService,
		user:         user,
		product:      product,
		testDB:       testDB,
	}
}

func (f *orderServiceFixture) fillCart(t *testing.T, quantity int) {
	t.Helper()
	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, quantity, nil)
	require.NoError(t, err)
}

func deliveryInput() CreateOrderInput {
	return CreateOrderInput{
		DeliveryType:    model.DeliveryTypeDelivery,
		DeliveryAddress: "Jl. Kemang Raya 12, Jakarta",
	}
}

func TestOrderService_CreateOrder_Delivery(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 2)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 158000.0, order.TotalAmount)
	assert.Equal(t, 25000.0, order.ShippingFee) // default delivery fee
	assert.Equal(t, 183000.0, order.FinalAmount)
	assert.Equal(t, "Jl. Kemang Raya 12, Jakarta", order.DeliveryAddress)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "Italian Florentine", order.OrderItems[0].ProductName)
	assert.Equal(t, 79000.0, order.OrderItems[0].UnitPrice)

	prefix := fmt.Sprintf("MB%s", time.Now().Format("20060102"))
	assert.Equal(t, prefix+"0001", order.OrderNumber)

	// Cart is cleared and stock decremented
	summary, err := f.cartService.GetUserCart(f.user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 0)

	var product model.Product
	require.NoError(t, f.testDB.First(&product, f.product.ID).Error)
	assert.Equal(t, 8, product.StockQuantity)
}

func TestOrderService_CreateOrder_SequenceRestartsDaily(t *testing.T) {
	f := setupOrderServiceTest(t)

	f.fillCart(t, 1)
	first, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	f.fillCart(t, 1)
	second, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	prefix := fmt.Sprintf("MB%s", time.Now().Format("20060102"))
	assert.Equal(t, prefix+"0001", first.OrderNumber)
	assert.Equal(t, prefix+"0002", second.OrderNumber)
}

func TestOrderService_CreateOrder_SavedAddress(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	address := &model.Address{
		UserID:      f.user.ID,
		Label:       "Home",
		Recipient:   "Test User",
		Phone:       "6281111111111",
		FullAddress: "Jl. Kemang Raya 12",
		City:        "Jakarta",
		PostalCode:  "12730",
	}
	require.NoError(t, f.testDB.Create(address).Error)

	order, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType: model.DeliveryTypeDelivery,
		AddressID:    &address.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Test User (6281111111111), Jl. Kemang Raya 12, Jakarta 12730", order.DeliveryAddress)
}

func TestOrderService_CreateOrder_ForeignAddressRejected(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	other := &model.User{
		Email:        "other@example.com",
		WhatsApp:     "6282222222222",
		PasswordHash: "hash",
		FullName:     "Other",
	}
	require.NoError(t, f.testDB.Create(other).Error)

	address := &model.Address{
		UserID:      other.ID,
		Label:       "Home",
		Recipient:   "Other",
		Phone:       "6282222222222",
		FullAddress: "Jl. Lain 1",
	}
	require.NoError(t, f.testDB.Create(address).Error)

	_, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType: model.DeliveryTypeDelivery,
		AddressID:    &address.ID,
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestOrderService_CreateOrder_EmptyCart(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_CreateOrder_DeliveryWithoutAddress(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	_, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType: model.DeliveryTypeDelivery,
	})
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestOrderService_CreateOrder_PickupWithoutDetails(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	_, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType:   model.DeliveryTypePickup,
		PickupLocation: "Milkbites Kemang",
	})
	assert.ErrorIs(t, err, ErrPickupDetailsRequired)
}

func TestOrderService_CreateOrder_Pickup(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	pickupDate := time.Now().Add(48 * time.Hour)
	order, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType:   model.DeliveryTypePickup,
		PickupLocation: "Milkbites Kemang",
		PickupDate:     &pickupDate,
	})
	require.NoError(t, err)

	assert.Equal(t, "Milkbites Kemang", order.PickupLocation)
	assert.Equal(t, 0.0, order.ShippingFee) // default pickup fee
	assert.Equal(t, 79000.0, order.FinalAmount)
}

func TestOrderService_CreateOrder_InvalidDeliveryType(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	_, err := f.orderService.CreateOrder(f.user.ID, CreateOrderInput{
		DeliveryType: "courier",
	})
	assert.ErrorIs(t, err, ErrInvalidDeliveryType)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 5)

	// Stock drops after the item entered the cart
	f.product.StockQuantity = 2
	require.NoError(t, f.testDB.Save(f.product).Error)

	_, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestOrderService_CreateOrder_WithDiscount(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 2)

	discountRepo := repository.NewDiscountRepository(f.testDB)
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "EID2025",
		Type:     model.DiscountPercentage,
		Value:    10,
		IsActive: true,
	}))

	input := deliveryInput()
	input.DiscountCode = "eid2025"
	order, err := f.orderService.CreateOrder(f.user.ID, input)
	require.NoError(t, err)

	assert.Equal(t, "EID2025", order.DiscountCode)
	assert.Equal(t, 15800.0, order.DiscountAmount)
	assert.Equal(t, 158000.0+25000.0-15800.0, order.FinalAmount)
}

func TestOrderService_CreateOrder_DiscountBelowMinimum(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	discountRepo := repository.NewDiscountRepository(f.testDB)
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:        "BIG",
		Type:        model.DiscountPercentage,
		Value:       5,
		MinPurchase: 1000000,
		IsActive:    true,
	}))

	input := deliveryInput()
	input.DiscountCode = "BIG"
	_, err := f.orderService.CreateOrder(f.user.ID, input)

	var minErr *MinPurchaseError
	assert.ErrorAs(t, err, &minErr)
}

func TestOrderService_GetOrder_OwnershipEnforced(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	found, err := f.orderService.GetOrder(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)

	// Someone else's order looks like a missing order
	_, err = f.orderService.GetOrder(f.user.ID+1, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetOrderByNumber(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	found, err := f.orderService.GetOrderByNumber(order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, f.user.FullName, found.User.FullName)

	_, err = f.orderService.GetOrderByNumber("MB209901010042")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_AttachPaymentProof(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	updated, err := f.orderService.AttachPaymentProof(f.user.ID, order.ID, "https://cdn.example.com/proof.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/proof.jpg", updated.PaymentProofURL)

	_, err = f.orderService.AttachPaymentProof(f.user.ID+1, order.ID, "https://cdn.example.com/other.jpg")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	updated, err := f.orderService.UpdateOrderStatus(order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	// Skipping straight to completed is not allowed
	_, err = f.orderService.UpdateOrderStatus(order.ID, model.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Cancellation is allowed before completion
	updated, err = f.orderService.UpdateOrderStatus(order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, updated.Status)

	// Cancelled is terminal
	_, err = f.orderService.UpdateOrderStatus(order.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_UpdateOrderStatus_NotFound(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.orderService.UpdateOrderStatus(9999, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_ListAllOrders_StatusFilter(t *testing.T) {
	f := setupOrderServiceTest(t)

	f.fillCart(t, 1)
	first, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	f.fillCart(t, 1)
	_, err = f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	_, err = f.orderService.UpdateOrderStatus(first.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)

	confirmed, err := f.orderService.ListAllOrders(repository.OrderFilter{Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.OrderNumber, confirmed[0].OrderNumber)

	all, err := f.orderService.ListAllOrders(repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrderService_ExportCSV(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 2)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	data, err := f.orderService.ExportCSV(repository.OrderFilter{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, order.OrderNumber, records[1][0])
	assert.Equal(t, "Test User", records[1][2])
	assert.Equal(t, "158000", records[1][3])
	assert.Equal(t, "183000", records[1][5])
	assert.Equal(t, "delivery", records[1][6])
	assert.Equal(t, "pending", records[1][7])
}

func TestOrderService_ExportXLSX(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.fillCart(t, 1)

	order, err := f.orderService.CreateOrder(f.user.ID, deliveryInput())
	require.NoError(t, err)

	data, err := f.orderService.ExportXLSX(repository.OrderFilter{})
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, order.OrderNumber, rows[1][0])
}
