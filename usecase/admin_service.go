package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// Credentials is an email/password pair
type Credentials struct {
	Email    string
	Password string
}

// DefaultFallbackCredentials lets an admin in when the credential store is
// unreachable or not configured yet
var DefaultFallbackCredentials = Credentials{
	Email:    "admin@housei.io",
	Password: "admin123",
}

// AdminService verifies and creates dashboard admin credentials.
// Passwords are stored and compared in plain text.
type AdminService struct {
	repo     repositories.AdminRepository
	fallback Credentials
	logger   *zap.Logger
}

// NewAdminService creates a new admin service. repo may be nil, in which case
// only the fallback pair is accepted. A fallback with an empty email is
// disabled.
func NewAdminService(repo repositories.AdminRepository, fallback Credentials, logger *zap.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		fallback: fallback,
		logger:   logger,
	}
}

// Verify returns the admin identity for a matching pair, nil otherwise.
// Store failures are logged and reported as no match.
func (s *AdminService) Verify(ctx context.Context, email, password string) *entities.AdminUser {
	if s.fallback.Email != "" && email == s.fallback.Email && password == s.fallback.Password {
		return entities.NewAdminUser(s.fallback.Email)
	}

	if s.repo == nil {
		return nil
	}

	admin, err := s.repo.FindByCredentials(ctx, email, password)
	if err != nil {
		if !errors.Is(err, entities.ErrAdminNotFound) {
			s.logger.Error("Admin credential lookup failed", zap.Error(err))
		}
		return nil
	}

	return entities.NewAdminUser(admin.Email)
}

// Authenticate is Verify with a miss turned into an AuthenticationError
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*entities.AdminUser, error) {
	user := s.Verify(ctx, email, password)
	if user == nil {
		return nil, &entities.AuthenticationError{Email: email}
	}
	return user, nil
}

// CreateAdmin writes a new admin record
func (s *AdminService) CreateAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &entities.ValidationError{Field: "credentials", Message: "email and password are required"}
	}
	if s.repo == nil {
		return errors.New("admin store is not configured")
	}

	record := &entities.AdminRecord{
		Email:     email,
		Password:  password,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Error creating admin user", zap.String("email", email), zap.Error(err))
		return err
	}

	s.logger.Info("Admin user created", zap.String("email", email))
	return nil
}
