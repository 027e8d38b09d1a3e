package store

import (
	"context"
	"fmt"

	"tfgRecruit/internal/database"
)

func (s *Store) UserByUsername(ctx context.Context, username string) (*database.User, error) {
	var row database.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*database.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row database.User
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

func (s *Store) CreateUser(ctx context.Context, user *database.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// SetPassword stores a new hash and clears the forced-change flag.
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	if err := s.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":        hash,
			"must_change_password": false,
		}).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
