package types

import (
	"fmt"
	"regexp"
	"time"
)

// Level identifies one tier of the rollup hierarchy. Each level's narrative
// is compacted into the next coarser level: daily documents roll up into the
// enclosing week, weekly into the month, monthly into the year.
type Level string

// Rollup level constants
const (
	LevelDaily   Level = "daily"
	LevelWeekly  Level = "weekly"
	LevelMonthly Level = "monthly"
	LevelAnnual  Level = "annual"
)

// ValidLevels contains all rollup levels, finest first.
var ValidLevels = []Level{LevelDaily, LevelWeekly, LevelMonthly, LevelAnnual}

// IsValidLevel checks whether the given level is valid.
func IsValidLevel(l Level) bool {
	for _, valid := range ValidLevels {
		if l == valid {
			return true
		}
	}
	return false
}

// Next returns the destination level a rollup at l appends into. The annual
// level is the top of the hierarchy and has no destination.
func (l Level) Next() (Level, bool) {
	switch l {
	case LevelDaily:
		return LevelWeekly, true
	case LevelWeekly:
		return LevelMonthly, true
	case LevelMonthly:
		return LevelAnnual, true
	default:
		return "", false
	}
}

// Period key formats by level: daily "2026-02-09", weekly "2026-W07",
// monthly "2026-02", annual "2026". All formats are zero-padded so that
// lexicographic order equals chronological order within a level.
var periodKeyPatterns = map[Level]*regexp.Regexp{
	LevelDaily:   regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	LevelWeekly:  regexp.MustCompile(`^\d{4}-W\d{2}$`),
	LevelMonthly: regexp.MustCompile(`^\d{4}-\d{2}$`),
	LevelAnnual:  regexp.MustCompile(`^\d{4}$`),
}

// KeyFor returns the period key of the period containing t at the given
// level.
func KeyFor(l Level, t time.Time) string {
	switch l {
	case LevelDaily:
		return t.Format("2006-01-02")
	case LevelWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case LevelMonthly:
		return t.Format("2006-01")
	case LevelAnnual:
		return t.Format("2006")
	default:
		return ""
	}
}

// ParseKey parses a period key at the given level and returns the UTC start
// of the period it denotes.
func ParseKey(l Level, key string) (time.Time, error) {
	pattern, ok := periodKeyPatterns[l]
	if !ok {
		return time.Time{}, fmt.Errorf("invalid level %q", l)
	}
	if !pattern.MatchString(key) {
		return time.Time{}, fmt.Errorf("malformed %s period key %q", l, key)
	}
	switch l {
	case LevelDaily:
		return time.ParseInLocation("2006-01-02", key, time.UTC)
	case LevelWeekly:
		var year, week int
		if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
			return time.Time{}, fmt.Errorf("malformed weekly period key %q", key)
		}
		if week < 1 || week > 53 {
			return time.Time{}, fmt.Errorf("weekly period key %q has week outside [1,53]", key)
		}
		return isoWeekStart(year, week), nil
	case LevelMonthly:
		return time.ParseInLocation("2006-01", key, time.UTC)
	default:
		return time.ParseInLocation("2006", key, time.UTC)
	}
}

// EnclosingKey returns the key of the period at the coarser level `outer`
// that contains the period named by (inner, key).
func EnclosingKey(inner, outer Level, key string) (string, error) {
	start, err := ParseKey(inner, key)
	if err != nil {
		return "", err
	}
	return KeyFor(outer, start), nil
}

// isoWeekStart returns the Monday starting ISO week (year, week) in UTC.
// January 4th is always inside ISO week 1 of its year.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}
