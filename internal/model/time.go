package model

import "time"

// TimeLayout is the storage format for every timestamp column. RFC3339 in
// UTC is fixed-width, so lexicographic ordering in SQL matches time order.
const TimeLayout = time.RFC3339

// ParseTime parses a stored timestamp. Zero time on empty input.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}
