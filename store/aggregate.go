package store

import (
	"context"
	"time"

	"github.com/compoundhabits/habits/models"
)

// Daily holds sparse per-date aggregates keyed by ISO date. Dates without
// entries are absent; callers default them to zero.
type Daily struct {
	Sum   map[string]float64
	Count map[string]int64
}

func newDaily() Daily {
	return Daily{Sum: map[string]float64{}, Count: map[string]int64{}}
}

type dailyRow struct {
	Date       string
	Total      float64
	EntryCount int64
}

// DailyStats sums and counts a habit's entries per date over [start, end]
// inclusive. An inverted range, an unknown habit, or a habit owned by someone
// else all produce empty maps; only database failures return an error.
func (s *Store) DailyStats(ctx context.Context, owner models.OwnerID, habitID uint, start, end time.Time) (Daily, error) {
	from, to := models.FormatDate(start), models.FormatDate(end)
	if from > to {
		return newDaily(), nil
	}

	var rows []dailyRow
	err := s.db.WithContext(ctx).
		Table("entries").
		Select("entries.date AS date, SUM(entries.value) AS total, COUNT(*) AS entry_count").
		Joins("JOIN habits ON habits.id = entries.habit_id").
		Where("entries.habit_id = ? AND habits.user_id = ?", habitID, uint(owner)).
		Where("entries.date BETWEEN ? AND ?", from, to).
		Group("entries.date").
		Order("entries.date").
		Scan(&rows).Error
	if err != nil {
		return Daily{}, storageErr("daily stats", err)
	}

	out := newDaily()
	for _, r := range rows {
		out.Sum[r.Date] = r.Total
		out.Count[r.Date] = r.EntryCount
	}
	return out, nil
}
