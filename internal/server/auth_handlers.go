package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"photostream/internal/models"
	"photostream/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Signup handles POST /api/auth/signup. The role is chosen at signup and is
// permanent for the account.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.Role == "" {
		return s.respondError(c, models.NewValidationError("Email, password, and role are required"))
	}
	if err := validation.ValidateEmail(email); err != nil {
		return s.respondError(c, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return s.respondError(c, models.NewValidationError(err.Error()))
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		return s.respondError(c, models.NewValidationError("Role must be creator or viewer"))
	}

	// Precheck for a friendlier message; the unique index is the real guard.
	existing, err := s.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		return s.respondError(c, err)
	}
	if existing != nil {
		return s.respondError(c, models.NewConflictError("An account with this email already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return s.respondError(c, createErr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		return s.respondError(c, err)
	}
	if user == nil {
		return s.respondError(c, models.NewUnauthenticatedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return s.respondError(c, models.NewUnauthenticatedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"role":    user.Role,
	})
}

// Me handles GET /api/auth/me and returns the authenticated account's
// profile, served through the user cache.
func (s *Server) Me(c *fiber.Ctx) error {
	p := s.principal(c)
	if p == nil {
		return s.respondError(c, models.NewUnauthenticatedError("Authentication required"))
	}

	user, err := s.userRepo.GetByID(c.Context(), p.UserID)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// generateToken creates a JWT asserting the user's identity and role.
func (s *Server) generateToken(userID uint, role models.Role) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": string(role),
		"iss":  tokenIssuer,
		"aud":  tokenAudience,
		"exp":  now.Add(24 * time.Hour).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
