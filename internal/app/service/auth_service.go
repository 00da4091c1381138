package service

import (
	"errors"
	"time"

	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"github.com/milkbites/milkbites-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrWhatsAppAlreadyExists = errors.New("whatsapp number already exists")
	ErrInvalidCredentials    = errors.New("invalid whatsapp number or password")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotAdmin              = errors.New("admin account required")
)

type AuthService interface {
	Register(email, whatsapp, password, fullName string) (*model.User, *util.TokenPair, error)
	Login(whatsapp, password string) (*model.User, *util.TokenPair, error)
	AdminLogin(whatsapp, password string) (*model.User, *util.TokenPair, error)
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, fullName, email string) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(email, whatsapp, password, fullName string) (*model.User, *util.TokenPair, error) {
	logger.Info("Attempting user registration", map[string]interface{}{
		"email":    email,
		"whatsapp": whatsapp,
	})

	// Check for existing email
	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing email", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	// WhatsApp number is the login key, must be unique too
	existingUser, err = s.userRepo.FindByWhatsApp(whatsapp)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing whatsapp number", err, map[string]interface{}{
			"whatsapp": whatsapp,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: whatsapp number already exists", map[string]interface{}{
			"whatsapp": whatsapp,
		})
		return nil, nil, ErrWhatsAppAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		WhatsApp:     whatsapp,
		PasswordHash: hashedPassword,
		FullName:     fullName,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
			"email":   email,
		})
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
		"role":    user.Role,
	})

	return user, tokens, nil
}

func (s *authService) Login(whatsapp, password string) (*model.User, *util.TokenPair, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"whatsapp": whatsapp,
	})

	user, err := s.userRepo.FindByWhatsApp(whatsapp)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"whatsapp": whatsapp,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"whatsapp": whatsapp,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"whatsapp": whatsapp,
			"user_id":  user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id":  user.ID,
			"whatsapp": whatsapp,
		})
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return user, tokens, nil
}

// AdminLogin authenticates like Login but rejects non-admin accounts
// before issuing tokens.
func (s *authService) AdminLogin(whatsapp, password string) (*model.User, *util.TokenPair, error) {
	user, tokens, err := s.Login(whatsapp, password)
	if err != nil {
		return nil, nil, err
	}

	if user.Role != model.RoleAdmin {
		logger.Warn("Admin login rejected for non-admin account", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrNotAdmin
	}

	return user, tokens, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	logger.Debug("Fetching user by ID", map[string]interface{}{
		"user_id": id,
	})

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}

	logger.Debug("User fetched successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	return user, nil
}

func (s *authService) UpdateProfile(userID uint, fullName, email string) (*model.User, error) {
	logger.Info("Updating user profile", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found for profile update", map[string]interface{}{
				"user_id": userID,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user for profile update", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	updated := false
	if fullName != "" && fullName != user.FullName {
		user.FullName = fullName
		updated = true
	}
	if email != "" && email != user.Email {
		user.Email = email
		updated = true
	}

	if !updated {
		logger.Debug("No changes detected for user profile", map[string]interface{}{
			"user_id": userID,
		})
		return user, nil
	}

	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id":   user.ID,
		"full_name": user.FullName,
	})

	return user, nil
}
