package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const addMembershipSQL = `
INSERT INTO user_groups (ug_user, ug_group, ug_expiry)
VALUES (?, ?, ?)
ON CONFLICT (ug_user, ug_group) DO UPDATE
  SET ug_expiry = EXCLUDED.ug_expiry
  WHERE user_groups.ug_expiry IS DISTINCT FROM EXCLUDED.ug_expiry
`

// AddMembership inserts a group membership if absent; an existing row is
// only written when its expiry differs, so repeated imports are no-ops.
func (r *GroupRepository) AddMembership(ctx context.Context, accountID int64, group string, expiry *time.Time) error {
	if err := r.db.WithContext(ctx).Exec(addMembershipSQL, accountID, group, expiry).Error; err != nil {
		return fmt.Errorf("add group membership: %w", err)
	}
	return nil
}
