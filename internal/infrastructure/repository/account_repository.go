package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/db/models"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByName(ctx context.Context, name string) (*domain.Account, error) {
	var row models.User

	err := r.db.WithContext(ctx).First(&row, "user_name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account by name: %w", err)
	}

	return toDomainAccount(&row), nil
}

func (r *AccountRepository) Create(ctx context.Context, name string) (*domain.Account, error) {
	now := time.Now().UTC()
	row := models.User{
		Name:         name,
		Registration: &now,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return toDomainAccount(&row), nil
}

func (r *AccountRepository) SetPasswordHash(ctx context.Context, accountID int64, hash string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", accountID).
		Update("user_password", hash).Error
	if err != nil {
		return fmt.Errorf("set account password: %w", err)
	}
	return nil
}

func (r *AccountRepository) SetAuthenticatedEmail(ctx context.Context, accountID int64, email string, authenticatedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", accountID).
		Updates(map[string]any{
			"user_email":               email,
			"user_email_authenticated": authenticatedAt,
			"user_email_token":         nil,
			"user_email_token_expires": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("set authenticated email: %w", err)
	}
	return nil
}

func (r *AccountRepository) SetPendingEmail(ctx context.Context, accountID int64, email string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", accountID).
		Updates(map[string]any{
			"user_email":               email,
			"user_email_authenticated": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("set pending email: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateImportedStats(ctx context.Context, accountID int64, editCount int64, registeredAt *time.Time) error {
	updates := map[string]any{"user_editcount": editCount}
	if registeredAt != nil {
		updates["user_registration"] = *registeredAt
	}

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", accountID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update imported stats: %w", err)
	}
	return nil
}

func toDomainAccount(row *models.User) *domain.Account {
	return &domain.Account{
		ID:                   row.ID,
		Name:                 row.Name,
		PasswordHash:         row.Password,
		Email:                row.Email,
		EmailAuthenticatedAt: row.EmailAuthenticated,
		EditCount:            row.EditCount,
		RegisteredAt:         row.Registration,
	}
}
