package repository

import (
	"context"
	"errors"
	"fmt"

	"playlister/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormUserRepository implements UserRepository with GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM backed UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser adds a new user; user.ID is assigned when empty.
func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	rec := newUserRecord(user)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = rec.CreatedAt
	user.UpdatedAt = rec.UpdatedAt
	return nil
}

// GetUserByID retrieves a user by id.
func (r *gormUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email address.
func (r *gormUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *gormUserRepository) first(ctx context.Context, query string, arg string) (*model.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return rec.toModel(), nil
}

// UpdateUser overwrites the profile fields and password hash of user.
func (r *gormUserRepository) UpdateUser(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Model(&userRecord{ID: user.ID}).Updates(map[string]interface{}{
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"user_name":     user.UserName,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"avatar_image":  longText(user.AvatarImage),
	}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}
