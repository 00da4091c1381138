package service

import (
	"testing"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/milkbites/milkbites-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthServiceTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	return NewAuthService(userRepo, "test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	authService := setupAuthServiceTest(t)

	user, tokens, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, tokens)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.Equal(t, "6281111111111", user.WhatsApp)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	// Password must not be stored in plain text
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, util.VerifyPassword(user.PasswordHash, "password123"))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	_, _, err = authService.Register("anna@example.com", "6282222222222", "password123", "Other Anna")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Register_DuplicateWhatsApp(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	_, _, err = authService.Register("other@example.com", "6281111111111", "password123", "Other")
	assert.ErrorIs(t, err, ErrWhatsAppAlreadyExists)
}

func TestAuthService_Login_Success(t *testing.T) {
	authService := setupAuthServiceTest(t)

	registered, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	user, tokens, err := authService.Login("6281111111111", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	_, _, err = authService.Login("6281111111111", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownWhatsApp(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Login("6289999999999", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_AdminLogin_RejectsRegularUser(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	_, _, err = authService.AdminLogin("6281111111111", "password123")
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestAuthService_AdminLogin_Success(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	authService := NewAuthService(userRepo, "test-secret", 15*time.Minute, 7*24*time.Hour)

	hash, err := util.HashPassword("admin123")
	require.NoError(t, err)
	admin := &model.User{
		Email:        "admin@example.com",
		WhatsApp:     "6280000000000",
		PasswordHash: hash,
		FullName:     "Admin",
		Role:         model.RoleAdmin,
	}
	require.NoError(t, userRepo.Create(admin))

	user, tokens, err := authService.AdminLogin("6280000000000", "admin123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService := setupAuthServiceTest(t)

	registered, _, err := authService.Register("anna@example.com", "6281111111111", "password123", "Anna")
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(registered.ID, "Anna Lee", "anna.lee@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Anna Lee", updated.FullName)
	assert.Equal(t, "anna.lee@example.com", updated.Email)

	// Empty fields keep current values
	updated, err = authService.UpdateProfile(registered.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Anna Lee", updated.FullName)
	assert.Equal(t, "anna.lee@example.com", updated.Email)
}

func TestAuthService_UpdateProfile_UserNotFound(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, err := authService.UpdateProfile(9999, "Name", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_GetUserByID_NotFound(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, err := authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
