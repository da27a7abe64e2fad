// Package service implements the business logic of the marketplace.
// Services validate input, enforce ownership and state rules, and
// orchestrate repositories, the cache, and the search index.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/auth"
	"github.com/Felix251/marketplace/internal/cache"
	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// UserService implements the business logic for accounts and authentication.
type UserService struct {
	users  repository.UserRepository
	hasher *auth.Hasher
	tokens *auth.JWTManager
	cache  *cache.Store
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, hasher *auth.Hasher, tokens *auth.JWTManager, cacheStore *cache.Store, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  cacheStore,
		logger: logger,
	}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates a new account. Every new account starts as a buyer;
// the seller role is granted when the user opens a store.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.InvalidInput("password must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         domain.RoleBuyer,
		Enabled:      true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// LoginResult is a successful authentication: the signed token and the user.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login authenticates by email and password. Wrong email and wrong
// password produce the same error; disabled accounts are rejected after
// the password check so the error does not leak account state to guessers.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if !user.Enabled {
		return nil, apperrors.Forbidden("account is disabled")
	}

	token, err := s.tokens.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("validate issued token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// AuthenticateToken resolves a bearer token to its user. Used by the auth
// middleware on every request; the user lookup goes through the cache.
func (s *UserService) AuthenticateToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	user, err := cache.GetOrLoad(ctx, s.cache, cache.RegionUsers, "email:"+claims.Subject, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByEmail(ctx, claims.Subject)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid or expired token")
		}
		return nil, fmt.Errorf("load token user: %w", err)
	}

	if !user.Enabled {
		return nil, apperrors.Unauthorized("account is disabled")
	}

	return user, nil
}

// EmailAvailable reports whether an email is free to register.
func (s *UserService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := s.users.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !exists, nil
}

// GetProfile retrieves a user by id through the cache.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := cache.GetOrLoad(ctx, s.cache, cache.RegionUsers, userID, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfile changes the user's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Phone = input.Phone

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.invalidateUser(ctx, user)

	return user, nil
}

// ChangePassword verifies the current password and sets a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.InvalidInput("password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.invalidateUser(ctx, user)

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID))
	return nil
}

// ListUsers returns a page of users. Admin only; the handler enforces that.
func (s *UserService) ListUsers(ctx context.Context, params pagination.Params) (pagination.Result[domain.User], error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return pagination.NewResult(users, total, params), nil
}

// GetUser retrieves any user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SetUserRole changes a user's role.
func (s *UserService) SetUserRole(ctx context.Context, id, role string) (*domain.User, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q, must be one of: %s", role, strings.Join(domain.ValidRoles(), ", ")))
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for role change: %w", err)
	}

	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}

	s.invalidateUser(ctx, user)

	s.logger.InfoContext(ctx, "user role changed",
		slog.String("user_id", id),
		slog.String("role", role),
	)

	return user, nil
}

// SetUserEnabled enables or disables an account. Disabled accounts cannot
// log in and their tokens stop resolving once the cache entry expires.
func (s *UserService) SetUserEnabled(ctx context.Context, id string, enabled bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for enable change: %w", err)
	}

	user.Enabled = enabled
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user enabled: %w", err)
	}

	s.invalidateUser(ctx, user)

	return user, nil
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.invalidateUser(ctx, user)

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

// invalidateUser drops both cache entries for a user. Failures only delay
// freshness until the TTL, so they are logged and swallowed.
func (s *UserService) invalidateUser(ctx context.Context, user *domain.User) {
	for _, key := range []string{user.ID, "email:" + user.Email} {
		if err := s.cache.Invalidate(ctx, cache.RegionUsers, key); err != nil {
			s.logger.WarnContext(ctx, "user cache invalidation failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
