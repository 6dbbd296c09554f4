// Package divination implements the six domain calculators. They are pure
// and deterministic: the same inputs always produce the same chart (tarot
// only when a seed is supplied). Precision follows the traditional
// simplified rules; results are stable across runs, which is what the
// chart-lock cache requires.
package divination

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	stems    = []string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	branches = []string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}

	stemElements   = []string{"木", "木", "火", "火", "土", "土", "金", "金", "水", "水"}
	branchElements = []string{"水", "土", "木", "木", "土", "火", "火", "土", "金", "金", "土", "水"}
)

// parseDate splits a canonical YYYY-MM-DD date.
func parseDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil ||
		year < 1850 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return year, month, day, nil
}

// parseTime splits a canonical HH:MM time.
func parseTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return hour, minute, nil
}

// julianDay computes the Julian day number for a Gregorian calendar date.
func julianDay(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// hourBranch maps a 24h clock hour to its earthly branch index. The 子 hour
// spans 23:00–00:59.
func hourBranch(hour int) int {
	return ((hour + 1) / 2) % 12
}
