package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Username         string    `gorm:"uniqueIndex;not null"  json:"username"`
	Email            string    `gorm:"uniqueIndex;not null"  json:"email"`
	FullName         string    `gorm:"not null"              json:"full_name"`
	PasswordHash     string    `gorm:"not null"              json:"-"`
	AvatarURL        string    `gorm:"not null"              json:"avatar_url"`
	CoverImageURL    string    `json:"cover_image_url,omitempty"`
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PublicUser is the projection returned to callers. It has no secret
// fields at all, so a response can never leak them.
type PublicUser struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) Sanitize() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
	}
}
