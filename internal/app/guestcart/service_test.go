package guestcart

import (
	"context"
	"errors"
	"testing"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupGuestCartTest(t *testing.T) (Service, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	service := NewService(NewMemoryStore(), productRepo)

	product := &model.Product{
		Name:          "Italian Florentine",
		Price:         79000,
		Category:      model.CategoryCookies,
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(product).Error)

	return service, product, testDB
}

func TestGuestCart_GetCart_UnknownTokenIsEmpty(t *testing.T) {
	service, _, _ := setupGuestCartTest(t)

	cart, err := service.GetCart(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
	assert.Equal(t, 0, cart.Count())
}

func TestGuestCart_AddItem(t *testing.T) {
	service, product, _ := setupGuestCartTest(t)
	ctx := context.Background()

	cart, err := service.AddItem(ctx, "token-1", product.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, product.Name, cart.Items[0].ProductName)
	assert.Equal(t, 79000.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 2, cart.Count())
	assert.Equal(t, 158000.0, cart.Subtotal())
}

func TestGuestCart_AddItem_ProductNotFound(t *testing.T) {
	service, _, _ := setupGuestCartTest(t)

	_, err := service.AddItem(context.Background(), "token-1", 9999, 1, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGuestCart_AddItem_RepositoryFailureIsNotANotFound(t *testing.T) {
	service, product, testDB := setupGuestCartTest(t)

	// Take the database away; the lookup error must surface as-is
	db.CleanupTestDB(testDB)

	_, err := service.AddItem(context.Background(), "token-1", product.ID, 1, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestGuestCart_AddItem_InactiveProduct(t *testing.T) {
	service, product, testDB := setupGuestCartTest(t)

	product.IsActive = false
	require.NoError(t, testDB.Save(product).Error)

	_, err := service.AddItem(context.Background(), "token-1", product.ID, 1, nil)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestGuestCart_AddItem_InvalidQuantity(t *testing.T) {
	service, product, _ := setupGuestCartTest(t)

	_, err := service.AddItem(context.Background(), "token-1", product.ID, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGuestCart_AddItem_ValidatesCustomization(t *testing.T) {
	service, _, testDB := setupGuestCartTest(t)

	hampers := &model.Product{
		Name:                  "Hampers Personal Cookies",
		Price:                 89000,
		Category:              model.CategoryHampers,
		RequiresCustomization: true,
		CustomizationOptions: &model.CustomizationOptions{
			RequiredCount: 1,
			Variants: []model.Variant{
				{Name: "Kaastengel"},
				{Name: "Nastar"},
			},
		},
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(hampers).Error)

	_, err := service.AddItem(context.Background(), "token-1", hampers.ID, 1, nil)
	assert.ErrorIs(t, err, pricing.ErrCustomizationRequired)

	cart, err := service.AddItem(context.Background(), "token-1", hampers.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel"}})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestGuestCart_AddItem_MergesSameCustomization(t *testing.T) {
	service, product, _ := setupGuestCartTest(t)
	ctx := context.Background()

	_, err := service.AddItem(ctx, "token-1", product.ID, 2, nil)
	require.NoError(t, err)
	cart, err := service.AddItem(ctx, "token-1", product.ID, 3, nil)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestGuestCart_AddItem_TokensAreIsolated(t *testing.T) {
	service, product, _ := setupGuestCartTest(t)
	ctx := context.Background()

	_, err := service.AddItem(ctx, "token-1", product.ID, 1, nil)
	require.NoError(t, err)

	cart, err := service.GetCart(ctx, "token-2")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}

func TestGuestCart_RemoveItem_DropsAllCustomizations(t *testing.T) {
	service, _, testDB := setupGuestCartTest(t)
	ctx := context.Background()

	hampers := &model.Product{
		Name:                  "Hampers Personal Cookies",
		Price:                 89000,
		Category:              model.CategoryHampers,
		RequiresCustomization: true,
		CustomizationOptions: &model.CustomizationOptions{
			RequiredCount: 1,
			Variants: []model.Variant{
				{Name: "Kaastengel"},
				{Name: "Nastar"},
			},
		},
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(hampers).Error)

	_, err := service.AddItem(ctx, "token-1", hampers.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel"}})
	require.NoError(t, err)
	_, err = service.AddItem(ctx, "token-1", hampers.ID, 1,
		&model.Customization{Variants: []string{"Nastar"}})
	require.NoError(t, err)

	cart, err := service.RemoveItem(ctx, "token-1", hampers.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}

func TestGuestCart_RemoveItem_NotFound(t *testing.T) {
	service, _, _ := setupGuestCartTest(t)

	_, err := service.RemoveItem(context.Background(), "token-1", 9999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestGuestCart_Count(t *testing.T) {
	service, product, _ := setupGuestCartTest(t)
	ctx := context.Background()

	count, err := service.Count(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = service.AddItem(ctx, "token-1", product.ID, 3, nil)
	require.NoError(t, err)

	count, err = service.Count(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// fakeAdder records replayed lines and can fail per product.
type fakeAdder struct {
	added   []uint
	failFor map[uint]error
}

func (a *fakeAdder) AddToCart(userID, productID uint, quantity int, customization *model.Customization) (*model.CartItem, error) {
	if err, ok := a.failFor[productID]; ok {
		return nil, err
	}
	a.added = append(a.added, productID)
	return &model.CartItem{UserID: userID, ProductID: productID, Quantity: quantity, Customization: customization}, nil
}

func TestGuestCart_MergeInto(t *testing.T) {
	service, product, testDB := setupGuestCartTest(t)
	ctx := context.Background()

	second := &model.Product{
		Name:          "Dutch Kaastengel",
		Price:         89000,
		Category:      model.CategoryCookies,
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(second).Error)

	_, err := service.AddItem(ctx, "token-1", product.ID, 2, nil)
	require.NoError(t, err)
	_, err = service.AddItem(ctx, "token-1", second.ID, 1, nil)
	require.NoError(t, err)

	adder := &fakeAdder{}
	merged, skipped, err := service.MergeInto(ctx, "token-1", 42, adder)
	require.NoError(t, err)
	assert.Equal(t, 2, merged)
	assert.Equal(t, 0, skipped)
	assert.Len(t, adder.added, 2)

	// Guest cart is gone, a replayed merge is a no-op
	merged, skipped, err = service.MergeInto(ctx, "token-1", 42, adder)
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
	assert.Equal(t, 0, skipped)
}

func TestGuestCart_MergeInto_SkipsFailingLines(t *testing.T) {
	service, product, testDB := setupGuestCartTest(t)
	ctx := context.Background()

	second := &model.Product{
		Name:          "Dutch Kaastengel",
		Price:         89000,
		Category:      model.CategoryCookies,
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(second).Error)

	_, err := service.AddItem(ctx, "token-1", product.ID, 2, nil)
	require.NoError(t, err)
	_, err = service.AddItem(ctx, "token-1", second.ID, 1, nil)
	require.NoError(t, err)

	adder := &fakeAdder{failFor: map[uint]error{second.ID: errors.New("insufficient stock")}}
	merged, skipped, err := service.MergeInto(ctx, "token-1", 42, adder)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)
	assert.Equal(t, 1, skipped)

	// The guest record is deleted despite the failed line
	cart, err := service.GetCart(ctx, "token-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}
