// Package stats shapes per-date habit aggregates into the views the API
// serves: the heatmap matrix, today's snapshot and per-habit line series.
package stats

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/store"
)

const (
	// HeatmapDays is the trailing window of the heatmap, today included.
	HeatmapDays = 31
	// DefaultLineDays is the lookback used when a series request names none.
	DefaultLineDays = 30
	// MaxLineDays bounds the lookback of a single series request.
	MaxLineDays = 3650

	defaultFanout = 4
)

var (
	// ErrInvalidSeriesKind is returned for a series kind other than count, sum or average.
	ErrInvalidSeriesKind = errors.New("invalid series kind")
	// ErrInvalidDays is returned when a lookback is negative or exceeds MaxLineDays.
	ErrInvalidDays = errors.New("invalid number of days")
)

// Source is the read side of the store the views are built from.
type Source interface {
	ListHabits(ctx context.Context, owner models.OwnerID) ([]models.Habit, error)
	GetHabit(ctx context.Context, owner models.OwnerID, habitID uint) (*models.Habit, error)
	DailyStats(ctx context.Context, owner models.OwnerID, habitID uint, start, end time.Time) (store.Daily, error)
	LatestEntryValue(ctx context.Context, owner models.OwnerID, habitID uint) (float64, bool, error)
}

// Service builds derived views over a Source.
type Service struct {
	src    Source
	now    func() time.Time
	fanout int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock that decides which day is today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFanout bounds how many habits are aggregated concurrently for the heatmap.
func WithFanout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

// NewService creates a Service.
func NewService(src Source, opts ...Option) *Service {
	s := &Service{src: src, now: time.Now, fanout: defaultFanout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Heatmap is a dense habit-by-date matrix. Row i of Sums and Counts belongs to
// the i-th habit; column j to Dates[j].
type Heatmap struct {
	HabitIDs []uint      `json:"habit_ids"`
	Habits   []string    `json:"habits"`
	Units    []string    `json:"units"`
	Dates    []string    `json:"dates"`
	Sums     [][]float64 `json:"sums"`
	Counts   [][]int64   `json:"counts"`
	MaxCount int64       `json:"max_count"`
}

// Heatmap aggregates every habit of owner over the trailing HeatmapDays.
// Habits are read independently, so concurrent writes may show up in some
// rows and not others.
func (s *Service) Heatmap(ctx context.Context, owner models.OwnerID) (*Heatmap, error) {
	habits, err := s.src.ListHabits(ctx, owner)
	if err != nil {
		return nil, err
	}

	start, end := Trailing(s.now(), HeatmapDays-1)
	hm := &Heatmap{
		HabitIDs: make([]uint, len(habits)),
		Habits:   make([]string, len(habits)),
		Units:    make([]string, len(habits)),
		Dates:    DateRange(start, end),
		Sums:     make([][]float64, len(habits)),
		Counts:   make([][]int64, len(habits)),
		MaxCount: 1,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, h := range habits {
		i, h := i, h
		hm.HabitIDs[i] = h.ID
		hm.Habits[i] = h.Name
		hm.Units[i] = h.UnitLabel()
		g.Go(func() error {
			daily, err := s.src.DailyStats(gctx, owner, h.ID, start, end)
			if err != nil {
				return err
			}
			hm.Sums[i] = Fill(hm.Dates, daily.Sum)
			hm.Counts[i] = Fill(hm.Dates, daily.Count)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, row := range hm.Counts {
		for _, c := range row {
			if c > hm.MaxCount {
				hm.MaxCount = c
			}
		}
	}
	return hm, nil
}

// HabitSnapshot is a habit with today's totals and the value to suggest for
// its next entry.
type HabitSnapshot struct {
	models.Habit
	TodayTotal  float64 `json:"today_total"`
	TodayCount  int64   `json:"today_count"`
	LatestValue float64 `json:"latest_value"`
}

// Today returns a snapshot of every habit of owner.
func (s *Service) Today(ctx context.Context, owner models.OwnerID) ([]HabitSnapshot, error) {
	habits, err := s.src.ListHabits(ctx, owner)
	if err != nil {
		return nil, err
	}
	today := s.now()
	out := make([]HabitSnapshot, 0, len(habits))
	for _, h := range habits {
		snap, err := s.snapshot(ctx, owner, h, today)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// TodayHabit returns the snapshot of a single habit.
func (s *Service) TodayHabit(ctx context.Context, owner models.OwnerID, habitID uint) (*HabitSnapshot, error) {
	h, err := s.src.GetHabit(ctx, owner, habitID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, owner, *h, s.now())
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Service) snapshot(ctx context.Context, owner models.OwnerID, h models.Habit, today time.Time) (HabitSnapshot, error) {
	daily, err := s.src.DailyStats(ctx, owner, h.ID, today, today)
	if err != nil {
		return HabitSnapshot{}, err
	}
	latest, found, err := s.src.LatestEntryValue(ctx, owner, h.ID)
	if err != nil {
		return HabitSnapshot{}, err
	}
	if !found {
		latest = h.DefaultValue
	}
	key := models.FormatDate(today)
	return HabitSnapshot{
		Habit:       h,
		TodayTotal:  daily.Sum[key],
		TodayCount:  daily.Count[key],
		LatestValue: latest,
	}, nil
}
