package service

import (
	"testing"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/pricing"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (CartService, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
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

	return cartService, user, product, testDB
}

func hampersProduct(t *testing.T, testDB *gorm.DB) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:                  "Hampers Double Cookies",
		Price:                 179000,
		Category:              model.CategoryHampers,
		RequiresCustomization: true,
		CustomizationOptions: &model.CustomizationOptions{
			RequiredCount: 2,
			Variants: []model.Variant{
				{Name: "Kaastengel"},
				{Name: "Nastar"},
				{Name: "Putri Salju"},
			},
		},
		StockQuantity: 10,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func TestCartService_GetUserCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	// Initially empty
	summary, err := cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 0)
	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, 0.0, summary.Subtotal)

	_, err = cartService.AddToCart(user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	summary, err = cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 158000.0, summary.Subtotal)
}

func TestCartService_AddToCart_CapturesUnitPrice(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	item, err := cartService.AddToCart(user.ID, product.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 79000.0, item.UnitPrice)

	// A later price change must not move the captured price
	product.Price = 99000
	require.NoError(t, testDB.Save(product).Error)

	summary, err := cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 79000.0, summary.Items[0].UnitPrice)
}

func TestCartService_AddToCart_ProductNotFound(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	_, err := cartService.AddToCart(user.ID, 9999, 1, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddToCart_InactiveProduct(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	product.IsActive = false
	require.NoError(t, testDB.Save(product).Error)

	_, err := cartService.AddToCart(user.ID, product.ID, 1, nil)
	assert.ErrorIs(t, err, ErrProductNotAvailable)
}

func TestCartService_AddToCart_InvalidQuantity(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddToCart(user.ID, product.ID, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_AddToCart_InsufficientStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddToCart(user.ID, product.ID, 100, nil)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_AddToCart_MergesSameCustomization(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	customization := &model.Customization{Variants: []string{"Kaastengel", "Nastar"}}

	_, err := cartService.AddToCart(user.ID, product.ID, 2, customization)
	require.NoError(t, err)
	_, err = cartService.AddToCart(user.ID, product.ID, 3, customization)
	require.NoError(t, err)

	summary, err := cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)
	assert.Equal(t, 5, summary.Items[0].Quantity)
}

func TestCartService_AddToCart_DifferentCustomizationStaysSeparate(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	_, err := cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel", "Nastar"}})
	require.NoError(t, err)
	_, err = cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Putri Salju", "Nastar"}})
	require.NoError(t, err)

	summary, err := cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 2)
}

func TestCartService_AddToCart_MergeChecksCombinedStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddToCart(user.ID, product.ID, 8, nil)
	require.NoError(t, err)

	// 8 + 5 exceeds the 10 in stock
	_, err = cartService.AddToCart(user.ID, product.ID, 5, nil)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_AddToCart_CustomizationRequired(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	_, err := cartService.AddToCart(user.ID, product.ID, 1, nil)
	assert.ErrorIs(t, err, pricing.ErrCustomizationRequired)
}

func TestCartService_AddToCart_WrongSelectionCount(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	_, err := cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel"}})

	var countErr *pricing.SelectionCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 2, countErr.RequiredCount)
	assert.Equal(t, 1, countErr.Selected)
}

func TestCartService_AddToCart_UnknownVariant(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	_, err := cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel", "Brownies"}})
	assert.ErrorIs(t, err, pricing.ErrUnknownVariant)
}

func TestCartService_AddToCart_UpchargeRaisesUnitPrice(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)

	product := &model.Product{
		Name:                  "Milkbites Bento Cake",
		Price:                 120000,
		Category:              model.CategoryCake,
		RequiresCustomization: true,
		CustomizationOptions: &model.CustomizationOptions{
			VariantTypes: map[string]model.VariantGroup{
				"frosting": {
					Label:         "Frosting",
					RequiredCount: 1,
					Variants: []model.Variant{
						{Name: "Cream Cheese"},
						{Name: "Pistachio Buttercream", AdditionalPrice: 15000},
					},
				},
			},
		},
		StockQuantity: 10,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(product).Error)

	item, err := cartService.AddToCart(user.ID, product.ID, 1, &model.Customization{
		VariantTypes: map[string][]string{"frosting": {"Pistachio Buttercream"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 135000.0, item.UnitPrice)
}

func TestCartService_UpdateCartItem_Success(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	item, err := cartService.AddToCart(user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	err = cartService.UpdateCartItem(user.ID, item.ID, 5)
	require.NoError(t, err)

	summary, _ := cartService.GetUserCart(user.ID)
	assert.Equal(t, 5, summary.Items[0].Quantity)
}

func TestCartService_UpdateCartItem_NotFound(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	err := cartService.UpdateCartItem(user.ID, 9999, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_UpdateCartItem_WrongUser(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	item, err := cartService.AddToCart(user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	err = cartService.UpdateCartItem(user.ID+1, item.ID, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_UpdateCartItem_InsufficientStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	item, err := cartService.AddToCart(user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	err = cartService.UpdateCartItem(user.ID, item.ID, 100)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_RemoveProduct_DropsAllLines(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)
	product := hampersProduct(t, testDB)

	// Two lines of the same product, different flavours
	_, err := cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Kaastengel", "Nastar"}})
	require.NoError(t, err)
	_, err = cartService.AddToCart(user.ID, product.ID, 1,
		&model.Customization{Variants: []string{"Putri Salju", "Nastar"}})
	require.NoError(t, err)

	removed, err := cartService.RemoveProduct(user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	summary, _ := cartService.GetUserCart(user.ID)
	assert.Len(t, summary.Items, 0)
}

func TestCartService_RemoveProduct_NotFound(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	_, err := cartService.RemoveProduct(user.ID, 9999)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_ClearCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddToCart(user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	err = cartService.ClearCart(user.ID)
	require.NoError(t, err)

	summary, _ := cartService.GetUserCart(user.ID)
	assert.Len(t, summary.Items, 0)
	assert.Equal(t, 0, summary.Count)
}

func TestCartService_CartCount(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	count, err := cartService.CartCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = cartService.AddToCart(user.ID, product.ID, 3, nil)
	require.NoError(t, err)

	count, err = cartService.CartCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
