package server

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/middleware"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes; longer passwords are rejected outright.
	maxPasswordLength = 72
)

type credentials struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

func validateRegistration(req *credentials) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return models.NewInvalidOperationError("Email and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return models.NewInvalidOperationError("Invalid email address")
	}
	if n := len(req.Password); n < minPasswordLength || n > maxPasswordLength {
		return models.NewInvalidOperationError("Password must be between 8 and 72 characters")
	}
	return nil
}

// Register handles POST /auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validateRegistration(&req); err != nil {
		return respond(c, err)
	}

	existing, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return respond(c, err)
	}
	if existing != nil {
		return respond(c, models.NewConflictError("User already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respond(c, models.NewStorageError(err))
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		DisplayName:  req.DisplayName,
		Phone:        req.Phone,
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return respond(c, models.NewConflictError("User already exists"))
		}
		return respond(c, err)
	}

	return s.issueSession(c, fiber.StatusCreated, user)
}

// Login handles POST /auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return respond(c, err)
	}
	if user == nil {
		return respond(c, models.NewUnauthenticatedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); cmpErr != nil {
		return respond(c, models.NewUnauthenticatedError("Invalid credentials"))
	}

	return s.issueSession(c, fiber.StatusOK, user)
}

func (s *Server) issueSession(c *fiber.Ctx, status int, user *models.User) error {
	token, _, err := middleware.IssueToken(s.config, user.ID, user.Email, time.Now())
	if err != nil {
		return respond(c, models.NewStorageError(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int64(s.config.TokenTTLHours) * 3600,
		"user":         user,
	})
}

// Logout handles POST /auth/logout. The presented token is revoked until it expires.
func (s *Server) Logout(c *fiber.Ctx) error {
	identity, _ := c.Locals("identity").(*models.Identity)
	if identity == nil || identity.TokenID == "" {
		return badRequest(c, "Token cannot be revoked")
	}

	ttl := time.Until(identity.ExpiresAt)
	if identity.ExpiresAt.IsZero() {
		ttl = time.Duration(s.config.TokenTTLHours) * time.Hour
	}

	if err := s.cache.RevokeToken(c.UserContext(), identity.TokenID, ttl); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation failed", "error", err)
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewStorageError(err))
	}
	return c.JSON(fiber.Map{"status": "logged_out"})
}
