package types

import "time"

// TimeGroup buckets conversations by age for the sidebar. It is computed at
// read time and never stored.
type TimeGroup string

const (
	TimeGroupToday     TimeGroup = "today"
	TimeGroupYesterday TimeGroup = "yesterday"
	TimeGroupLast7Days TimeGroup = "last7days"
	TimeGroupOlder     TimeGroup = "older"
)

// ComputeTimeGroup derives the bucket from the age of createdAt at now,
// counted in fractional days.
func ComputeTimeGroup(createdAt, now time.Time) TimeGroup {
	days := now.Sub(createdAt).Hours() / 24
	switch {
	case days < 1:
		return TimeGroupToday
	case days < 2:
		return TimeGroupYesterday
	case days < 7:
		return TimeGroupLast7Days
	default:
		return TimeGroupOlder
	}
}

func (g TimeGroup) String() string {
	return string(g)
}
