// Package aggregate re-buckets a canonical daily series into coarser
// intervals without losing OHLC semantics.
package aggregate

import (
	"time"

	"github.com/peetj/btc-tracker/internal/model"
)

// Aggregate rolls the series up to the requested granularity. Pure: the
// input is never modified and repeated calls yield identical results. One
// output record is produced per non-empty bucket, keyed by the bucket's
// truncated timestamp, sorted ascending. loc nil means time.Local.
func Aggregate(s model.Series, g model.Granularity, loc *time.Location) model.Series {
	if loc == nil {
		loc = time.Local
	}

	buckets := make(map[int64]*model.DailyRecord)
	order := make([]int64, 0, len(s))

	for _, r := range s {
		key := bucketStart(r.Timestamp, g, loc)
		agg, ok := buckets[key]
		if !ok {
			c := r
			c.Timestamp = key
			buckets[key] = &c
			order = append(order, key)
			continue
		}
		if r.High > agg.High {
			agg.High = r.High
		}
		if r.Low < agg.Low {
			agg.Low = r.Low
		}
		agg.Close = r.Close
		agg.Volume += r.Volume
	}

	out := make(model.Series, 0, len(buckets))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	out.Sort()
	return out
}

// bucketStart truncates an epoch-ms timestamp to its bucket boundary in loc.
// Weeks start on the most recent Monday.
func bucketStart(ms int64, g model.Granularity, loc *time.Location) int64 {
	t := time.UnixMilli(ms).In(loc)
	switch g {
	case model.GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc).UnixMilli()
	case model.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		back := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -back).UnixMilli()
	case model.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc).UnixMilli()
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).UnixMilli()
	}
}
