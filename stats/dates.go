package stats

import (
	"time"

	"github.com/compoundhabits/habits/models"
)

// Number is the value type of an aggregate series.
type Number interface {
	~int64 | ~float64
}

// DateRange lists every calendar date from start to end inclusive as ISO
// strings. It is empty when start falls after end.
func DateRange(start, end time.Time) []string {
	first := midnight(start)
	last := models.FormatDate(end)
	dates := []string{}
	for d := first; ; d = d.AddDate(0, 0, 1) {
		key := models.FormatDate(d)
		if key > last {
			break
		}
		dates = append(dates, key)
	}
	return dates
}

// Fill expands a sparse date-keyed mapping into one value per date, using
// zero where the mapping has no entry.
func Fill[T Number](dates []string, sparse map[string]T) []T {
	out := make([]T, len(dates))
	for i, d := range dates {
		out[i] = sparse[d]
	}
	return out
}

// Trailing returns the window that ends on today and starts n days earlier.
func Trailing(today time.Time, n int) (time.Time, time.Time) {
	end := midnight(today)
	return end.AddDate(0, 0, -n), end
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
