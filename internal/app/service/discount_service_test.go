package service

import (
	"testing"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDiscountServiceTest(t *testing.T) (DiscountService, repository.DiscountRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	discountRepo := repository.NewDiscountRepository(testDB)
	return NewDiscountService(discountRepo), discountRepo
}

func TestDiscountService_Validate_Percentage(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "EID2025",
		Type:     model.DiscountPercentage,
		Value:    5,
		IsActive: true,
	}))

	validation, err := discountService.Validate("EID2025", 200000)
	require.NoError(t, err)
	assert.Equal(t, "EID2025", validation.Code)
	assert.Equal(t, 10000.0, validation.Amount)
}

func TestDiscountService_Validate_NormalizesCode(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "EID2025",
		Type:     model.DiscountPercentage,
		Value:    10,
		IsActive: true,
	}))

	validation, err := discountService.Validate("  eid2025 ", 100000)
	require.NoError(t, err)
	assert.Equal(t, "EID2025", validation.Code)
}

func TestDiscountService_Validate_FixedCappedAtSubtotal(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "FLAT50",
		Type:     model.DiscountFixed,
		Value:    50000,
		IsActive: true,
	}))

	validation, err := discountService.Validate("FLAT50", 30000)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, validation.Amount)
}

func TestDiscountService_Validate_NotFound(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	_, err := discountService.Validate("NOPE", 100000)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestDiscountService_Validate_Inactive(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "OLD",
		Type:     model.DiscountPercentage,
		Value:    5,
		IsActive: false,
	}))

	_, err := discountService.Validate("OLD", 100000)
	assert.ErrorIs(t, err, ErrDiscountInactive)
}

func TestDiscountService_Validate_Window(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	future := time.Now().Add(24 * time.Hour)
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:      "SOON",
		Type:      model.DiscountPercentage,
		Value:     5,
		ValidFrom: &future,
		IsActive:  true,
	}))

	past := time.Now().Add(-24 * time.Hour)
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:       "GONE",
		Type:       model.DiscountPercentage,
		Value:      5,
		ValidUntil: &past,
		IsActive:   true,
	}))

	_, err := discountService.Validate("SOON", 100000)
	assert.ErrorIs(t, err, ErrDiscountNotStarted)

	_, err = discountService.Validate("GONE", 100000)
	assert.ErrorIs(t, err, ErrDiscountExpired)
}

func TestDiscountService_Validate_MinPurchase(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:        "BIG",
		Type:        model.DiscountPercentage,
		Value:       5,
		MinPurchase: 1000000,
		IsActive:    true,
	}))

	_, err := discountService.Validate("BIG", 500000)

	var minErr *MinPurchaseError
	require.ErrorAs(t, err, &minErr)
	assert.Equal(t, 1000000.0, minErr.MinPurchase)
	assert.Equal(t, 500000.0, minErr.Subtotal)
}

func TestDiscountService_CreateDiscount_UppercasesCode(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	discount := &model.Discount{
		Code:     "spring10",
		Type:     model.DiscountPercentage,
		Value:    10,
		IsActive: true,
	}
	require.NoError(t, discountService.CreateDiscount(discount))
	assert.Equal(t, "SPRING10", discount.Code)
}

func TestDiscountService_CreateDiscount_DuplicateCode(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	require.NoError(t, discountService.CreateDiscount(&model.Discount{
		Code:     "SPRING10",
		Type:     model.DiscountPercentage,
		Value:    10,
		IsActive: true,
	}))

	err := discountService.CreateDiscount(&model.Discount{
		Code:     "spring10",
		Type:     model.DiscountFixed,
		Value:    20000,
		IsActive: true,
	})
	assert.ErrorIs(t, err, ErrDiscountCodeExists)
}

func TestDiscountService_CreateDiscount_InvalidDefinition(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	cases := []model.Discount{
		{Code: "", Type: model.DiscountPercentage, Value: 10},
		{Code: "A", Type: model.DiscountPercentage, Value: 0},
		{Code: "B", Type: model.DiscountPercentage, Value: 150},
		{Code: "C", Type: model.DiscountFixed, Value: 0},
		{Code: "D", Type: "bogus", Value: 10},
	}
	for _, c := range cases {
		discount := c
		err := discountService.CreateDiscount(&discount)
		assert.ErrorIs(t, err, ErrInvalidDiscount, "code %q", c.Code)
	}
}

func TestDiscountService_DeleteDiscount_NotFound(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	err := discountService.DeleteDiscount(9999)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestDiscountService_DeactivateExpired(t *testing.T) {
	discountService, discountRepo := setupDiscountServiceTest(t)

	past := time.Now().Add(-24 * time.Hour)
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:       "GONE",
		Type:       model.DiscountPercentage,
		Value:      5,
		ValidUntil: &past,
		IsActive:   true,
	}))
	require.NoError(t, discountRepo.Create(&model.Discount{
		Code:     "STILL",
		Type:     model.DiscountPercentage,
		Value:    5,
		IsActive: true,
	}))

	count, err := discountService.DeactivateExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	expired, err := discountRepo.FindByCode("GONE")
	require.NoError(t, err)
	assert.False(t, expired.IsActive)

	active, err := discountRepo.FindByCode("STILL")
	require.NoError(t, err)
	assert.True(t, active.IsActive)
}
