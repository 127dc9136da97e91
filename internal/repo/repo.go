package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kmorozov/clipstream/internal/models"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

type GormRepo struct {
	DB *gorm.DB
}

// FindByUsernameOrEmail matches either identity. An empty argument is
// excluded from the match rather than compared against empty columns.
func (r *GormRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	q := r.DB.WithContext(ctx)
	switch {
	case email == "":
		q = q.Where("username = ?", username)
	case username == "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("username = ? OR email = ?", username, email)
	}

	var user models.User
	err := q.First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser relies on the unique indexes as the authoritative guard:
// a concurrent registration that slipped past the pre-check still fails here.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
