package model

import "fmt"

// Granularity is a re-aggregation bucket width.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity validates a user-supplied granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityHour, GranularityDay, GranularityWeek, GranularityMonth:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q (want hour, day, week or month)", s)
}
