package store

import (
	"context"
	"errors"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/compoundhabits/habits/models"
)

// NewHabit holds the fields a user supplies when creating a habit.
type NewHabit struct {
	Name         string
	Unit         *string
	DefaultValue *float64
}

// CreateHabit persists a habit for owner. Names are not deduplicated.
func (s *Store) CreateHabit(ctx context.Context, owner models.OwnerID, in NewHabit) (*models.Habit, error) {
	if !owner.Valid() {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	value := models.DefaultHabitValue
	if in.DefaultValue != nil {
		value = *in.DefaultValue
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidInput
	}
	var unit *string
	if in.Unit != nil {
		if u := strings.TrimSpace(*in.Unit); u != "" {
			unit = &u
		}
	}

	habit := models.Habit{
		UserID:       uint(owner),
		Name:         name,
		Unit:         unit,
		DefaultValue: value,
	}
	if err := s.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return nil, storageErr("create habit", err)
	}
	return &habit, nil
}

// ListHabits returns the owner's habits in creation order.
func (s *Store) ListHabits(ctx context.Context, owner models.OwnerID) ([]models.Habit, error) {
	var habits []models.Habit
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", uint(owner)).
		Order("id").
		Find(&habits).Error; err != nil {
		return nil, storageErr("list habits", err)
	}
	return habits, nil
}

// GetHabit loads one of owner's habits.
func (s *Store) GetHabit(ctx context.Context, owner models.OwnerID, habitID uint) (*models.Habit, error) {
	return s.ownedHabit(s.db.WithContext(ctx), owner, habitID)
}

// DeleteHabit removes the habit and all of its entries in one transaction.
// It reports false when the habit is absent or owned by someone else.
func (s *Store) DeleteHabit(ctx context.Context, owner models.OwnerID, habitID uint) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedHabit(tx, owner, habitID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("habit_id = ?", habitID).Delete(&models.Entry{}).Error; err != nil {
			return storageErr("delete habit entries", err)
		}
		res := tx.Where("id = ? AND user_id = ?", habitID, uint(owner)).Delete(&models.Habit{})
		if res.Error != nil {
			return storageErr("delete habit", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Store) ownedHabit(db *gorm.DB, owner models.OwnerID, habitID uint) (*models.Habit, error) {
	var habit models.Habit
	err := db.Where("id = ? AND user_id = ?", habitID, uint(owner)).Take(&habit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get habit", err)
	}
	return &habit, nil
}
