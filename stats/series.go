package stats

import (
	"context"
	"strings"

	"github.com/compoundhabits/habits/models"
)

// SeriesKind selects which daily value a line series plots.
type SeriesKind string

const (
	SeriesCount   SeriesKind = "count"
	SeriesSum     SeriesKind = "sum"
	SeriesAverage SeriesKind = "average"
)

// SeriesKinds lists the accepted kinds in display order.
var SeriesKinds = []SeriesKind{SeriesCount, SeriesSum, SeriesAverage}

// ParseSeriesKind accepts a kind name case-insensitively.
func ParseSeriesKind(s string) (SeriesKind, error) {
	k := SeriesKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SeriesKinds {
		if k == known {
			return k, nil
		}
	}
	return "", ErrInvalidSeriesKind
}

// LineSeries is one value per day for a single habit.
type LineSeries struct {
	HabitID uint       `json:"habit_id"`
	Habit   string     `json:"habit"`
	Unit    string     `json:"unit"`
	Kind    SeriesKind `json:"kind"`
	Days    int        `json:"days"`
	Title   string     `json:"title"`
	YLabel  string     `json:"y_label"`
	Dates   []string   `json:"dates"`
	Values  []float64  `json:"values"`
}

// Line builds a series for habit over the window from today minus days to
// today. The kind is normalized before use; days must be within 0..MaxLineDays.
func (s *Service) Line(ctx context.Context, owner models.OwnerID, habitID uint, kind SeriesKind, days int) (*LineSeries, error) {
	kind, err := ParseSeriesKind(string(kind))
	if err != nil {
		return nil, err
	}
	if days < 0 || days > MaxLineDays {
		return nil, ErrInvalidDays
	}
	h, err := s.src.GetHabit(ctx, owner, habitID)
	if err != nil {
		return nil, err
	}

	start, end := Trailing(s.now(), days)
	daily, err := s.src.DailyStats(ctx, owner, habitID, start, end)
	if err != nil {
		return nil, err
	}
	dates := DateRange(start, end)

	var values []float64
	switch kind {
	case SeriesCount:
		counts := Fill(dates, daily.Count)
		values = make([]float64, len(counts))
		for i, c := range counts {
			values[i] = float64(c)
		}
	case SeriesSum:
		values = Fill(dates, daily.Sum)
	case SeriesAverage:
		values = Average(Fill(dates, daily.Sum), Fill(dates, daily.Count))
	}

	title, ylabel := labels(h.Name, h.UnitLabel(), kind)
	return &LineSeries{
		HabitID: h.ID,
		Habit:   h.Name,
		Unit:    h.UnitLabel(),
		Kind:    kind,
		Days:    days,
		Title:   title,
		YLabel:  ylabel,
		Dates:   dates,
		Values:  values,
	}, nil
}

// Average divides sums by counts pointwise. Days with no entries are 0, not NaN.
func Average(sums []float64, counts []int64) []float64 {
	out := make([]float64, len(sums))
	for i := range sums {
		if i < len(counts) && counts[i] > 0 {
			out[i] = sums[i] / float64(counts[i])
		}
	}
	return out
}

func labels(name, unit string, kind SeriesKind) (string, string) {
	withUnit := func(prefix string) string {
		if unit == "" {
			return prefix
		}
		return prefix + " " + unit
	}
	switch kind {
	case SeriesCount:
		return name + " - Daily Count", "Times per day"
	case SeriesSum:
		return name + " - Daily Total", withUnit("Total")
	default:
		return name + " - Daily Average", withUnit("Average")
	}
}
