package model

import "sort"

// DailyRecord is a single OHLC bar covering one calendar day.
// Timestamp is epoch milliseconds, midnight-aligned in the configured
// location; it is the unique key within any series.
type DailyRecord struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Series is an ordered sequence of DailyRecord with strictly increasing
// timestamps and no duplicate keys.
type Series []DailyRecord

// Sort orders the series ascending by timestamp in place.
func (s Series) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
}

// Last returns the final record. Callers must check Len first.
func (s Series) Last() DailyRecord {
	return s[len(s)-1]
}

// Index returns a timestamp lookup set over the series.
func (s Series) Index() map[int64]struct{} {
	idx := make(map[int64]struct{}, len(s))
	for _, r := range s {
		idx[r.Timestamp] = struct{}{}
	}
	return idx
}

// Merge appends every record from extra whose timestamp is not already
// present in s, then re-sorts. s keeps precedence on collisions.
func Merge(s Series, extra Series) Series {
	if len(extra) == 0 {
		return s
	}
	idx := s.Index()
	out := s
	for _, r := range extra {
		if _, dup := idx[r.Timestamp]; dup {
			continue
		}
		out = append(out, r)
		idx[r.Timestamp] = struct{}{}
	}
	out.Sort()
	return out
}
