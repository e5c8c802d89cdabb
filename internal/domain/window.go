package domain

import "time"

// Window is an owner-published, bookable time range of a parking spot.
type Window struct {
	ID        int64
	SpotID    int64
	StartTime time.Time
	EndTime   time.Time
	Booked    bool
	CreatedAt time.Time
}

// Overlaps reports whether the window intersects [start, end]. Boundaries are
// inclusive: a window ending at 12:00 overlaps one starting at 12:00.
func (w *Window) Overlaps(start, end time.Time) bool {
	return !(end.Before(w.StartTime) || start.After(w.EndTime))
}

// Hours is the whole number of hours the window spans, truncated toward zero.
func (w *Window) Hours() int64 {
	return WholeHoursBetween(w.StartTime, w.EndTime)
}

// IsAvailable reports whether the window can still be booked at now.
func (w *Window) IsAvailable(now time.Time) bool {
	return !w.Booked && w.StartTime.After(now)
}

func WholeHoursBetween(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Hour)
}
