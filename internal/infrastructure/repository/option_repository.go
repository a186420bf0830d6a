package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/db/models"
)

// OptionRepository reads and writes per-account preference rows. The
// effective option map is the configured defaults overlaid with stored rows;
// keys outside that map are not valid local options.
type OptionRepository struct {
	db       *gorm.DB
	defaults map[string]string
}

func NewOptionRepository(db *gorm.DB, defaults map[string]string) *OptionRepository {
	return &OptionRepository{db: db, defaults: defaults}
}

func (r *OptionRepository) CurrentOptions(ctx context.Context, accountID int64) (map[string]string, error) {
	var rows []models.UserProperty
	if err := r.db.WithContext(ctx).Where("up_user = ?", accountID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load user properties: %w", err)
	}

	options := make(map[string]string, len(r.defaults)+len(rows))
	for k, v := range r.defaults {
		options[k] = v
	}
	for _, row := range rows {
		options[row.Property] = row.Value
	}
	return options, nil
}

const setOptionSQL = `
INSERT INTO user_properties (up_user, up_property, up_value)
VALUES (?, ?, ?)
ON CONFLICT (up_user, up_property) DO UPDATE
  SET up_value = EXCLUDED.up_value
  WHERE user_properties.up_value IS DISTINCT FROM EXCLUDED.up_value
`

func (r *OptionRepository) SetOption(ctx context.Context, accountID int64, key, value string) error {
	if err := r.db.WithContext(ctx).Exec(setOptionSQL, accountID, key, value).Error; err != nil {
		return fmt.Errorf("set user option: %w", err)
	}
	return nil
}
