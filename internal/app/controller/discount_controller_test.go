package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func setupDiscountControllerTest(t *testing.T) (*DiscountController, *gin.Engine, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	discountRepo := repository.NewDiscountRepository(testDB)
	discountService := service.NewDiscountService(discountRepo)
	controller := NewDiscountController(discountService)

	seed := &model.Discount{
		Code:     "EID2025",
		Type:     model.DiscountPercentage,
		Value:    5,
		IsActive: true,
	}
	require.NoError(t, testDB.Create(seed).Error)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/discounts/validate", controller.Validate)

	return controller, router, testDB
}

func TestDiscountController_Validate_QueryParameters(t *testing.T) {
	_, router, _ := setupDiscountControllerTest(t)

	// The storefront sends query parameters with an empty body
	req := httptest.NewRequest(http.MethodPost, "/discounts/validate?code=EID2025&total=200000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["valid"])

	discount := response["discount"].(map[string]interface{})
	assert.Equal(t, "EID2025", discount["code"])
	assert.Equal(t, float64(10000), discount["amount"]) // 5% of 200000
}

func TestDiscountController_Validate_QueryParameters_UnknownCode(t *testing.T) {
	_, router, _ := setupDiscountControllerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/discounts/validate?code=NOPE&total=200000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "DISCOUNT_NOT_FOUND", response["error"])
}

func TestDiscountController_Validate_QueryParameters_MissingTotal(t *testing.T) {
	_, router, _ := setupDiscountControllerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/discounts/validate?code=EID2025", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscountController_Validate_JSONBody(t *testing.T) {
	_, router, _ := setupDiscountControllerTest(t)

	body, _ := json.Marshal(ValidateDiscountRequest{Code: "EID2025", Total: 200000})
	req := httptest.NewRequest(http.MethodPost, "/discounts/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["valid"])
}

func TestDiscountController_Validate_NoParametersAtAll(t *testing.T) {
	_, router, _ := setupDiscountControllerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/discounts/validate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "VALIDATION_INVALID_INPUT", response["error"])
}
