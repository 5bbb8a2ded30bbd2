package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
	"gorm.io/gorm"
)

func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	var taken int64
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR (email <> '' AND LOWER(email) = LOWER(?))", user.Username, user.Email).
		Count(&taken).Error
	if err != nil {
		return err
	}
	if taken > 0 {
		return apperrors.ErrUsernameTaken
	}

	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrUsernameTaken
		}
		return err
	}
	return nil
}

// FindUser looks an account up by username or email.
func (d *Database) FindUser(ctx context.Context, identifier string) (*models.User, error) {
	user := models.User{}
	err := d.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *Database) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (d *Database) TouchUser(ctx context.Context, username string) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("last_seen_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
