package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/kmorozov/clipstream/internal/hash"
	jwthelp "github.com/kmorozov/clipstream/internal/jwt"
	"github.com/kmorozov/clipstream/internal/logging"
	"github.com/kmorozov/clipstream/internal/media"
	"github.com/kmorozov/clipstream/internal/models"
	"github.com/kmorozov/clipstream/internal/repo"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type UserIndexer interface {
	IndexUser(ctx context.Context, u models.PublicUser) error
}

type SessionService struct {
	Repo   *repo.GormRepo
	Media  media.Uploader
	Events EventPublisher
	Index  UserIndexer

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type FileInput struct {
	Reader   io.Reader
	Filename string
	Size     int64
}

type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string

	Avatar     *FileInput
	CoverImage *FileInput
}

type LoginResult struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	AccessExp    time.Time         `json:"-"`
	RefreshExp   time.Time         `json:"-"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	l := logging.FromContext(ctx).With("svc", "session.register")

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	// The password is validated trimmed but hashed as given, so the
	// bytes that registered are the bytes that log in.
	if in.FullName == "" || in.Email == "" || in.Username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("all fields are required: %w", ErrValidation)
	}
	if !validEmail(in.Email) {
		return nil, fmt.Errorf("invalid email address: %w", ErrValidation)
	}
	if in.Avatar == nil {
		return nil, fmt.Errorf("avatar is required: %w", ErrValidation)
	}

	// Pre-check must complete before create; the DB unique indexes stay
	// authoritative for the race window.
	if _, err := s.Repo.FindByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return nil, fmt.Errorf("user with same username or email exists: %w", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_error", "status", 500, "reason", "lookup failed", "error", err)
		return nil, fmt.Errorf("user lookup failed: %w", ErrInternal)
	}

	// Mandatory upload: failure aborts the whole registration.
	avatarURL, err := s.Media.Upload(ctx, in.Avatar.Reader, in.Avatar.Filename, in.Avatar.Size)
	if err != nil || avatarURL == "" {
		l.Warn("register_error", "status", 400, "reason", "avatar upload failed", "error", err)
		return nil, fmt.Errorf("avatar upload failed: %w", ErrValidation)
	}

	// Optional upload: failure degrades to no cover image.
	coverURL := ""
	if in.CoverImage != nil {
		coverURL, err = s.Media.Upload(ctx, in.CoverImage.Reader, in.CoverImage.Filename, in.CoverImage.Size)
		if err != nil {
			l.Warn("cover image upload failed, continuing without it", "error", err)
			coverURL = ""
		}
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("cannot hash password: %w", ErrInternal)
	}

	user := models.User{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		PasswordHash:  pwHash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}

	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("user with same username or email exists: %w", ErrConflict)
		}
		l.Error("register_error", "status", 500, "reason", "create failed", "error", err)
		return nil, fmt.Errorf("cannot create user: %w", ErrInternal)
	}

	created, err := s.Repo.FindByID(ctx, user.ID)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "created user re-fetch failed", "error", err)
		return nil, fmt.Errorf("registration could not be confirmed: %w", ErrInternal)
	}

	public := created.Sanitize()
	s.publishEvent(ctx, "user_registered", created.ID.String(), public)
	if s.Index != nil {
		if err := s.Index.IndexUser(ctx, public); err != nil {
			l.Warn("user index update failed", "error", err)
		}
	}

	l.Info("user_registered", "user_id", created.ID, "username", created.Username)
	return &public, nil
}

func (s *SessionService) publishEvent(ctx context.Context, eventType, userID string, payload any) {
	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":    eventType,
		"user_id": userID,
		"data":    payload,
	}
	if err := s.Events.PublishEvent(ctx, userID, event); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", eventType, "error", err)
	}
}

func storedRefreshMatches(u *models.User, rawToken string) bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash == jwthelp.Sha256Hex(rawToken)
}
