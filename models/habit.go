package models

import "time"

// DefaultHabitValue is used when a habit is created without a default increment.
const DefaultHabitValue = 1.0

// Habit is a user-defined trackable activity.
type Habit struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Unit         *string   `gorm:"size:64" json:"unit"`
	DefaultValue float64   `gorm:"not null;default:1" json:"default_value"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnitLabel returns the unit or an empty string when none is set.
func (h Habit) UnitLabel() string {
	if h.Unit == nil {
		return ""
	}
	return *h.Unit
}
