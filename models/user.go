package models

import "time"

// User is the minimal identity record created on first successful OAuth login.
// Rows are never updated after creation.
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider  string    `gorm:"size:32;not null;uniqueIndex:idx_users_provider_subject" json:"provider"`
	Subject   string    `gorm:"size:255;not null;uniqueIndex:idx_users_provider_subject" json:"-"`
	Email     string    `gorm:"size:255" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Owner returns the tenant identifier for everything this user owns.
func (u User) Owner() OwnerID {
	return OwnerID(u.ID)
}
