package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
)

// TokenRevoker blacklists an access token until it would have expired.
// Wired to Redis in production, nil-safe for tests.
type TokenRevoker func(ctx context.Context, token string, expiry time.Duration) error

type AuthController struct {
	authService  service.AuthService
	revokeToken  TokenRevoker
	accessExpiry time.Duration
}

func NewAuthController(authService service.AuthService, revokeToken TokenRevoker, accessExpiry time.Duration) *AuthController {
	return &AuthController{
		authService:  authService,
		revokeToken:  revokeToken,
		accessExpiry: accessExpiry,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	WhatsApp string `json:"whatsapp" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
}

type LoginRequest struct {
	WhatsApp string `json:"whatsapp" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Register handles customer registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid registration details")
		return
	}

	log.Debug("Processing registration", map[string]interface{}{
		"email":    req.Email,
		"whatsapp": req.WhatsApp,
	})

	user, tokens, err := ctrl.authService.Register(req.Email, req.WhatsApp, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			log.Warn("Registration failed: email already exists", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email is already registered")
			return
		}
		if errors.Is(err, service.ErrWhatsAppAlreadyExists) {
			log.Warn("Registration failed: whatsapp number already exists", map[string]interface{}{
				"whatsapp": req.WhatsApp,
			})
			apperrors.Conflict(c, apperrors.AuthWhatsAppExists, "This WhatsApp number is already registered")
			return
		}
		log.Error("Registration failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"whatsapp":  user.WhatsApp,
			"full_name": user.FullName,
			"role":      user.Role,
		},
		"tokens": tokens,
	})
}

// Login authenticates a customer by WhatsApp number
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid login details")
		return
	}

	log.Debug("Processing login", map[string]interface{}{
		"whatsapp": req.WhatsApp,
	})

	user, tokens, err := ctrl.authService.Login(req.WhatsApp, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Login failed: invalid credentials", map[string]interface{}{
				"whatsapp": req.WhatsApp,
			})
			apperrors.Unauthorized(c, "Invalid WhatsApp number or password")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"whatsapp": req.WhatsApp,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		return
	}

	log.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"whatsapp":  user.WhatsApp,
			"full_name": user.FullName,
			"role":      user.Role,
		},
		"tokens": tokens,
	})
}

// AdminLogin authenticates back-office staff
// POST /api/v1/auth/admin/login
func (ctrl *AuthController) AdminLogin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid admin login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid login details")
		return
	}

	user, tokens, err := ctrl.authService.AdminLogin(req.WhatsApp, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.Unauthorized(c, "Invalid WhatsApp number or password")
			return
		}
		if errors.Is(err, service.ErrNotAdmin) {
			log.Warn("Admin login rejected for non-admin account", map[string]interface{}{
				"whatsapp": req.WhatsApp,
			})
			apperrors.Forbidden(c, "Admin account required")
			return
		}
		log.Error("Admin login failed", err, map[string]interface{}{
			"whatsapp": req.WhatsApp,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "admin login")
		return
	}

	log.Info("Admin login successful", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"whatsapp":  user.WhatsApp,
			"full_name": user.FullName,
			"role":      user.Role,
		},
		"tokens": tokens,
	})
}

// GetMe returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to GetMe endpoint", nil)
		apperrors.Unauthorized(c, "Login required")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			log.Warn("User not found", map[string]interface{}{
				"user_id": userID,
			})
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to get user information", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"whatsapp":  user.WhatsApp,
			"full_name": user.FullName,
			"role":      user.Role,
		},
	})
}

// UpdateMe updates the authenticated user's profile
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to UpdateMe endpoint", nil)
		apperrors.Unauthorized(c, "Login required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update profile request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid profile details")
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update profile")
		return
	}

	log.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"whatsapp":  user.WhatsApp,
			"full_name": user.FullName,
			"role":      user.Role,
		},
	})
}

// Logout blacklists the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if exists {
		log.Info("User logged out", map[string]interface{}{
			"user_id": userID,
		})
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token != "" && ctrl.revokeToken != nil {
		if err := ctrl.revokeToken(c.Request.Context(), token, ctrl.accessExpiry); err != nil {
			// Logout always succeeds from the user's perspective
			log.Error("Failed to revoke token during logout", err, nil)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
