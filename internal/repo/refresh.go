package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/kmorozov/clipstream/internal/models"
)

// SetRefreshTokenHash replaces the stored refresh-token hash in a single
// row update. Passing nil clears it, which invalidates the session.
func (r *GormRepo) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("refresh_token_hash", hash).Error
}
