package domain

import "time"

// Bar represents one minute bar of an instrument's price history.
// Bars are immutable and unique per (instrument, timestamp_ms).
type Bar struct {
	TimestampMs int64 // bar open time, UTC epoch milliseconds
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// Day returns the UTC trading day of the bar in YYYY-MM-DD form.
func (b Bar) Day() string {
	return time.UnixMilli(b.TimestampMs).UTC().Format("2006-01-02")
}

// MinuteOfDay returns the bar's minute offset from UTC midnight.
func (b Bar) MinuteOfDay() int {
	t := time.UnixMilli(b.TimestampMs).UTC()
	return t.Hour()*60 + t.Minute()
}

// DayIndex returns the number of whole UTC days since the epoch.
// Used to group a bar series into trading days without timezone math.
func (b Bar) DayIndex() int64 {
	return b.TimestampMs / millisPerDay
}

// Year returns the UTC calendar year of the bar.
func (b Bar) Year() int {
	return time.UnixMilli(b.TimestampMs).UTC().Year()
}
