package repository

import (
	"context"
	"errors"
	"fmt"

	"atomvideo/internal/cache"
	"atomvideo/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetAccount(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FindForOAuth(ctx context.Context, provider, providerID, email string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	LinkProvider(ctx context.Context, userID uint, provider, providerID, avatar string) error
	MarkVerified(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// ProviderColumn returns the users column holding the id for an OAuth provider.
func ProviderColumn(provider string) (string, error) {
	switch provider {
	case "google":
		return "google_id", nil
	case "github":
		return "github_id", nil
	}
	return "", fmt.Errorf("no user column for provider %q", provider)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return lookupError(err, "User")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAccount reads the full row, credentials and provider ids included,
// bypassing the cache whose JSON copies drop them.
func (r *userRepository) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User")
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// GetByUsername returns (nil, nil) when the username is free.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FindForOAuth returns every user whose provider id or email matches.
// An empty email matches by provider id only.
func (r *userRepository) FindForOAuth(ctx context.Context, provider, providerID, email string) ([]models.User, error) {
	col, err := ProviderColumn(provider)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	q := r.db.WithContext(ctx).Where(col+" = ?", providerID)
	if email != "" {
		q = q.Or("email = ?", email)
	}

	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the profile columns (username, avatar, bio). Credentials, provider
// links and role have dedicated methods, since cached copies omit them.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).Select("username", "avatar", "bio").Updates(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Username already taken")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) LinkProvider(ctx context.Context, userID uint, provider, providerID, avatar string) error {
	col, err := ProviderColumn(provider)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	updates := map[string]any{
		col:           providerID,
		"is_verified": true,
	}
	if avatar != "" {
		updates["avatar"] = avatar
	}
	return r.updateColumns(ctx, userID, updates)
}

func (r *userRepository) MarkVerified(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]any{"is_verified": true})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password": hash})
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return r.updateColumns(ctx, id, map[string]any{"role": role})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User")
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User")
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(clampLimit(limit)).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
