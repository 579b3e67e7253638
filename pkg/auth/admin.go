package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bakery/pkg/config"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	EnsureAdmin(ctx context.Context, a *models.Admin) (bool, error)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// AdminLogin checks back-office credentials and issues a token pair with
// the admin role. Unknown emails and wrong passwords look the same.
func AdminLogin(ctx context.Context, admins AdminStore, tokens *TokenIssuer, email, password string) (*TokenPair, *models.Admin, error) {
	admin, err := admins.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrBadCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrBadCredentials
	}
	pair, err := tokens.Issue(admin.ID.Hex(), admin.Email, models.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	return pair, admin, nil
}

// SeedAdmin creates the bootstrap admin from config when it does not exist.
// An existing admin keeps its password.
func SeedAdmin(ctx context.Context, admins AdminStore, cfg *config.AuthConfig, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("No bootstrap admin configured")
		return nil
	}
	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	created, err := admins.EnsureAdmin(ctx, &models.Admin{
		Email:        models.NormalizeEmail(cfg.AdminEmail),
		Name:         cfg.AdminName,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		logger.Info("Bootstrap admin created", zap.String("email", cfg.AdminEmail))
	}
	return nil
}
