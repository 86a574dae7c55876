package store

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	"github.com/compoundhabits/habits/models"
)

// RecordEntry stores an entry for today. A nil value falls back to the habit's
// default increment. Habits owned by someone else yield ErrNotFound.
func (s *Store) RecordEntry(ctx context.Context, owner models.OwnerID, habitID uint, value *float64) (*models.Entry, error) {
	db := s.db.WithContext(ctx)
	habit, err := s.ownedHabit(db, owner, habitID)
	if err != nil {
		return nil, err
	}

	v := habit.DefaultValue
	if value != nil {
		v = *value
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrInvalidInput
	}

	now := s.now()
	entry := models.Entry{
		HabitID:   habit.ID,
		Value:     v,
		Date:      models.FormatDate(now),
		Timestamp: now.Unix(),
	}
	if err := db.Create(&entry).Error; err != nil {
		return nil, storageErr("record entry", err)
	}
	return &entry, nil
}

// DeleteLastEntry removes the entry with the latest timestamp, breaking ties by
// id. It reports false when there is nothing to delete.
func (s *Store) DeleteLastEntry(ctx context.Context, owner models.OwnerID, habitID uint) (bool, error) {
	db := s.db.WithContext(ctx)
	entry, err := s.latestEntry(db, owner, habitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	res := db.Delete(&models.Entry{}, entry.ID)
	if res.Error != nil {
		return false, storageErr("delete entry", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// LatestEntryValue returns the value of the most recently created entry.
func (s *Store) LatestEntryValue(ctx context.Context, owner models.OwnerID, habitID uint) (float64, bool, error) {
	entry, err := s.latestEntry(s.db.WithContext(ctx), owner, habitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return entry.Value, true, nil
}

func (s *Store) latestEntry(db *gorm.DB, owner models.OwnerID, habitID uint) (*models.Entry, error) {
	var entry models.Entry
	err := db.Model(&models.Entry{}).
		Select("entries.*").
		Joins("JOIN habits ON habits.id = entries.habit_id").
		Where("entries.habit_id = ? AND habits.user_id = ?", habitID, uint(owner)).
		Order("entries.timestamp DESC").
		Order("entries.id DESC").
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("latest entry", err)
	}
	return &entry, nil
}
