package agenda

import (
	"slices"
	"sort"

	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

// DayMap maps a YYYY-MM-DD key to the events on that day. Within a bucket,
// events keep the order their sessions were given in.
type DayMap map[string][]model.CalendarEvent

// Group expands every session and buckets the results by day key.
func Group(x Expander, sessions []model.Session) DayMap {
	grouped := make(DayMap)

	for _, s := range sessions {
		for _, ev := range x.Expand(s) {
			grouped[ev.DayKey] = append(grouped[ev.DayKey], ev)
		}
	}

	appLog.Debug("agenda: grouped sessions",
		"sessions", len(sessions),
		"days", len(grouped),
		"events", grouped.Total(),
	)
	return grouped
}

// Events returns the bucket for key, or nil.
func (m DayMap) Events(key string) []model.CalendarEvent {
	return m[key]
}

// Keys returns the day keys in ascending date order.
func (m DayMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total counts events across all buckets.
func (m DayMap) Total() int {
	n := 0
	for _, evs := range m {
		n += len(evs)
	}
	return n
}

// Range returns a new map with only the keys in [from, to]. Empty bounds are open.
func (m DayMap) Range(from, to string) DayMap {
	out := make(DayMap)
	for k, evs := range m {
		if from != "" && k < from {
			continue
		}
		if to != "" && k > to {
			continue
		}
		out[k] = evs
	}
	return out
}

// SortChronological returns a copy whose buckets are ordered by layout start
// time. Ties keep their original order. The receiver is not modified.
func (m DayMap) SortChronological() DayMap {
	out := make(DayMap, len(m))
	for k, evs := range m {
		sorted := slices.Clone(evs)
		slices.SortStableFunc(sorted, func(a, b model.CalendarEvent) int {
			as, _ := SplitRange(a.LayoutTime)
			bs, _ := SplitRange(b.LayoutTime)
			return ParseMinutes(as) - ParseMinutes(bs)
		})
		out[k] = sorted
	}
	return out
}
