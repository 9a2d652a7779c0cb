package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the identity-provider operations the application
// consumes: credential auth, token lifecycle, and OAuth reconciliation.
type AuthService interface {
	// Login authenticates a user and returns access and refresh tokens.
	Login(ctx context.Context, email, password string) (string, string, error)

	// Register creates a new password-based user.
	Register(ctx context.Context, username, email, password string) error

	// RefreshSession generates new access and refresh tokens using a valid
	// refresh token (rotation: the old token is revoked).
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)

	// Logout invalidates the presented refresh token.
	Logout(ctx context.Context, refreshToken string) error

	// UpdatePassword verifies the old password and stores the new hash,
	// revoking all outstanding refresh tokens.
	UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error

	// GetOrCreateUserFromProvider reconciles an OAuth sign-in with the user
	// store: lookup by provider id, then by email (linking the provider to
	// the pre-existing account), then create.
	GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.UserAuth, error)

	// GenerateTokens issues a fresh access/refresh token pair for a user.
	GenerateTokens(ctx context.Context, user *types.UserAuth) (string, string, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	jwtCfg config.JWTConfig
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: jwtCfg,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", "", types.ErrUnauthenticated
		}
		return "", "", fmt.Errorf("login lookup failed: %w", err)
	}

	if user.Password == "" {
		// OAuth-only account, no password to compare against.
		return "", "", types.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", types.ErrUnauthenticated
	}

	return s.GenerateTokens(ctx, user)
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.repo.Register(ctx, username, email, string(hashedPassword))
	if err != nil {
		return err
	}
	return nil
}

func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	userID, err := s.repo.ValidateRefreshTokenAndGetUserID(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("user not found for refresh token: %w", err)
	}

	accessToken, newRefreshToken, err := s.GenerateTokens(ctx, user)
	if err != nil {
		return "", "", err
	}

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		s.logger.WarnContext(ctx, "Failed to revoke rotated refresh token", slog.Any("error", err))
	}

	return accessToken, newRefreshToken, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.InvalidateRefreshToken(ctx, refreshToken)
}

func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return types.ErrUnauthenticated
	}

	newHashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHashed)); err != nil {
		return err
	}

	// A password change invalidates every outstanding session.
	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "Failed to revoke refresh tokens after password change",
			slog.String("userID", userID), slog.Any("error", err))
	}
	return nil
}

func (s *AuthServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.UserAuth, error) {
	user, err := s.repo.GetUserByProvider(ctx, provider, providerUser.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("provider lookup failed: %w", err)
	}

	if providerUser.Email != "" {
		existing, err := s.repo.GetUserByEmail(ctx, providerUser.Email)
		if err == nil {
			if linkErr := s.repo.LinkProvider(ctx, existing.ID, provider, providerUser.UserID); linkErr != nil {
				s.logger.WarnContext(ctx, "Failed to link provider to existing account",
					slog.String("userID", existing.ID), slog.Any("error", linkErr))
			}
			return existing, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("email lookup failed: %w", err)
		}
	}

	username := providerUser.NickName
	if username == "" {
		username = displayNameFromEmail(providerUser.Email)
	}
	userID, err := s.repo.CreateProviderUser(ctx, username, providerUser.Email, provider, providerUser.UserID)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			// Another callback won the race; re-read for a consistent result.
			return s.repo.GetUserByProvider(ctx, provider, providerUser.UserID)
		}
		return nil, err
	}

	return s.repo.GetUserByID(ctx, userID)
}

func (s *AuthServiceImpl) GenerateTokens(ctx context.Context, user *types.UserAuth) (string, string, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.jwtCfg.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *AuthServiceImpl) generateAccessToken(user *types.UserAuth) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}

func displayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
