package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/compoundhabits/habits/models"
)

// Identity is what an identity provider tells us about a user.
type Identity struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// EnsureUser returns the user for identity, creating it on first sight.
// Existing users are returned as stored; profile changes upstream are ignored.
func (s *Store) EnsureUser(ctx context.Context, id Identity) (*models.User, error) {
	provider := strings.ToLower(strings.TrimSpace(id.Provider))
	subject := strings.TrimSpace(id.Subject)
	if provider == "" || subject == "" {
		return nil, ErrInvalidInput
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where(&models.User{Provider: provider, Subject: subject}).
		Attrs(&models.User{
			Email:     strings.TrimSpace(id.Email),
			Name:      strings.TrimSpace(id.Name),
			AvatarURL: strings.TrimSpace(id.AvatarURL),
		}).
		FirstOrCreate(&user).Error
	if err == nil {
		return &user, nil
	}

	// A concurrent first login may have won the unique index; read its row.
	if lookupErr := s.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", provider, subject).
		First(&user).Error; lookupErr == nil {
		return &user, nil
	}
	return nil, storageErr("ensure user", err)
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get user", err)
	}
	return &user, nil
}
