package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmorozov/clipstream/internal/hash"
	jwthelp "github.com/kmorozov/clipstream/internal/jwt"
	"github.com/kmorozov/clipstream/internal/logging"
	"github.com/kmorozov/clipstream/internal/models"
	"github.com/kmorozov/clipstream/internal/repo"
	"github.com/kmorozov/clipstream/internal/tokens"
)

type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *SessionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "session.login")

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" && in.Email == "" {
		return nil, fmt.Errorf("username or email is required: %w", ErrValidation)
	}

	// Username wins when both identities are supplied, so two fields
	// naming different accounts cannot resolve to an arbitrary one.
	var user *models.User
	var err error
	if in.Username != "" {
		user, err = s.Repo.FindByUsernameOrEmail(ctx, in.Username, "")
	} else {
		user, err = s.Repo.FindByUsernameOrEmail(ctx, "", in.Email)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("no such account: %w", ErrNotFound)
		}
		l.Error("login_error", "status", 500, "error", err)
		return nil, fmt.Errorf("user lookup failed: %w", ErrInternal)
	}

	if !hash.CheckPassword(user.PasswordHash, in.Password) {
		l.Warn("login_failed", "status", 401, "user_id", user.ID)
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}

	s.publishEvent(ctx, "user_login", user.ID.String(), map[string]any{"username": user.Username})
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// issueSession mints a new token pair and persists the refresh hash,
// overwriting any prior one: one active refresh session per user.
func (s *SessionService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	accessExp := time.Now().Add(s.AccessTTL)
	accessToken, err := tokens.SignAccess(user.ID.String(), user.Username, s.AccessSecret, accessExp)
	if err != nil {
		return nil, fmt.Errorf("cannot sign access token: %w", ErrInternal)
	}

	refreshExp := time.Now().Add(s.RefreshTTL)
	refreshToken, err := tokens.SignRefresh(user.ID.String(), s.RefreshSecret, refreshExp)
	if err != nil {
		return nil, fmt.Errorf("cannot sign refresh token: %w", ErrInternal)
	}

	tokenHash := jwthelp.Sha256Hex(refreshToken)
	if err := s.Repo.SetRefreshTokenHash(ctx, user.ID, &tokenHash); err != nil {
		return nil, fmt.Errorf("cannot persist refresh token: %w", ErrInternal)
	}

	return &LoginResult{
		User:         user.Sanitize(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a live refresh token for a new pair, rotating the
// stored hash so the old token is dead after one use.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "session.refresh")

	if rawRefresh == "" {
		return nil, fmt.Errorf("refresh token is required: %w", ErrUnauthorized)
	}

	claims, err := tokens.RefreshClaimsFromToken(rawRefresh, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	}

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
		}
		l.Error("refresh_error", "status", 500, "error", err)
		return nil, fmt.Errorf("user lookup failed: %w", ErrInternal)
	}

	if !storedRefreshMatches(user, rawRefresh) {
		l.Warn("refresh_rejected", "status", 401, "user_id", user.ID)
		return nil, fmt.Errorf("refresh token revoked or superseded: %w", ErrUnauthorized)
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		l.Error("refresh_error", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

// Logout clears the stored refresh hash. Clearing an already-empty
// session is not an error.
func (s *SessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "session.logout")

	if err := s.Repo.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		l.Error("logout_error", "status", 500, "error", err)
		return fmt.Errorf("cannot revoke refresh token: %w", ErrInternal)
	}

	s.publishEvent(ctx, "user_logout", userID.String(), nil)
	l.Info("logout_successful", "user_id", userID)
	return nil
}
