package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
)

// GuestTokenHeader carries the anonymous cart token for guest requests.
const GuestTokenHeader = "X-Guest-Token"

// BlacklistChecker reports whether a token has been revoked (logout).
type BlacklistChecker func(ctx context.Context, token string) (bool, error)

type AuthMiddleware struct {
	jwtSecret string
	isRevoked BlacklistChecker
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// NewAuthMiddlewareWithBlacklist adds a revocation check on top of
// signature validation. Tests pass nil-free fakes; the server wires
// the Redis blacklist.
func NewAuthMiddlewareWithBlacklist(jwtSecret string, isRevoked BlacklistChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		isRevoked: isRevoked,
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string

		// Try to get token from Authorization header first
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authorization header format")
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			// If no Authorization header, try to get token from query parameter (for WebSocket)
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.Unauthorized(c, "Authentication required")
				c.Abort()
				return
			}
			log.Debug("Using token from query parameter", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Your session has expired")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		if m.isRevoked != nil {
			revoked, err := m.isRevoked(c.Request.Context(), token)
			if err != nil {
				log.Error("Token revocation check failed", err, map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.InternalError(c, "")
				c.Abort()
				return
			}
			if revoked {
				log.Warn("Revoked token rejected", map[string]interface{}{
					"path":    c.Request.URL.Path,
					"user_id": claims.UserID,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "This session has been logged out")
				c.Abort()
				return
			}
		}

		// Set user information in context
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate validates JWT token if present (optional)
// - If token is present and valid: sets user info in context
// - If token is missing or invalid: continues without user info
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// No token provided - continue as guest
			log.Debug("No authorization header - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			// Invalid format - continue as guest
			log.Debug("Invalid authorization header format - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		token := parts[1]
		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			// Invalid or expired token - continue as guest
			log.Debug("Token validation failed - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		// Valid token - set user information in context
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))

		log.Debug("User authenticated successfully (optional)", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// RequireRole checks if user has required role
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userRole, exists := c.Get(UserRoleKey)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzRoleNotFound, "Role information not found")
			c.Abort()
			return
		}

		role := userRole.(model.UserRole)
		userID, _ := GetUserID(c)

		for _, r := range roles {
			if role == model.UserRole(r) {
				log.Debug("Role check passed", map[string]interface{}{
					"user_id":       userID,
					"user_role":     role,
					"required_role": r,
				})
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, "You do not have permission to access this resource")
		c.Abort()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}

// GetGuestToken extracts the anonymous cart token from the request.
// Falls back to the query string for WebSocket upgrades.
func GetGuestToken(c *gin.Context) (string, bool) {
	token := c.GetHeader(GuestTokenHeader)
	if token == "" {
		token = c.Query("guest_token")
	}
	return token, token != ""
}
