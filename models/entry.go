package models

import "time"

// DateLayout is the ISO calendar date format stored in entries.date.
const DateLayout = "2006-01-02"

// Entry is one recorded occurrence of a habit.
//
// Date is the logical day the entry counts toward, taken from the server's
// local clock when recorded. Timestamp is epoch seconds and only orders entries
// by recency; the two may disagree around midnight.
type Entry struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	HabitID   uint    `gorm:"not null" json:"habit_id"`
	Value     float64 `gorm:"not null" json:"value"`
	Date      string  `gorm:"column:date;size:10;not null" json:"date"`
	Timestamp int64   `gorm:"column:timestamp;not null" json:"timestamp"`
}

// FormatDate renders t as an entry date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
