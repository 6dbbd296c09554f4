package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// normalizeArgs rewrites well-known argument values into their canonical
// forms before validation: dates to YYYY-MM-DD, times to HH:MM, gender
// synonyms to male/female. Unknown keys are left untouched.
func normalizeArgs(args map[string]any) {
	for key, value := range args {
		str, ok := value.(string)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(key, "date"):
			if norm, ok := NormalizeDate(str); ok {
				args[key] = norm
			}
		case strings.Contains(key, "time"):
			if norm, ok := NormalizeTime(str); ok {
				args[key] = norm
			}
		case key == "gender":
			if norm, ok := NormalizeGender(str); ok {
				args[key] = norm
			}
		}
	}
}

var (
	dateCJK   = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*[日號号]?`)
	dateDigit = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)

	timeDigit    = regexp.MustCompile(`(\d{1,2})[:：](\d{2})`)
	periodPrefix = regexp.MustCompile(`凌晨|清晨|早上|上午|中午|下午|傍晚|晚上|深夜|半夜`)
	timeCJK      = regexp.MustCompile(`(凌晨|清晨|早上|上午|中午|下午|傍晚|晚上|深夜|半夜)?\s*(\d{1,2})\s*[點点时時]\s*(半|(\d{1,2})\s*分?)?`)
)

// NormalizeDate canonicalises a Gregorian date to YYYY-MM-DD. Accepts
// 1990年7月22日, 1990-07-22, 1990/7/22, 1990.7.22.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, re := range []*regexp.Regexp{dateCJK, dateDigit} {
		if m := re.FindStringSubmatch(s); m != nil {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			if month < 1 || month > 12 || day < 1 || day > 31 {
				return "", false
			}
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
		}
	}
	return "", false
}

// NormalizeTime canonicalises a time of day to HH:MM (24h). Accepts 14:15,
// 8:30, and Chinese period-prefixed forms: 早上8點30分, 下午2點15分,
// 晚上11點, 中午12點半.
func NormalizeTime(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if m := timeCJK.FindStringSubmatch(s); m != nil && m[1] != "" {
		hour, _ := strconv.Atoi(m[2])
		minute := 0
		if m[3] == "半" {
			minute = 30
		} else if m[4] != "" {
			minute, _ = strconv.Atoi(m[4])
		}
		hour = applyPeriod(m[1], hour)
		if hour > 23 || minute > 59 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if m := timeDigit.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if p := periodPrefix.FindString(s); p != "" {
			hour = applyPeriod(p, hour)
		}
		if hour > 23 || minute > 59 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	// Bare 點-form without a period prefix: take as 24h.
	if m := timeCJK.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[2])
		minute := 0
		if m[3] == "半" {
			minute = 30
		} else if m[4] != "" {
			minute, _ = strconv.Atoi(m[4])
		}
		if hour > 23 || minute > 59 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	return "", false
}

// applyPeriod shifts a 12h Chinese clock reading into 24h.
func applyPeriod(period string, hour int) int {
	switch period {
	case "凌晨", "清晨", "半夜":
		if hour == 12 {
			return 0
		}
		return hour
	case "早上", "上午":
		return hour
	case "中午":
		// 中午12點 → 12:00, 中午1點 → 13:00.
		if hour <= 2 {
			return hour + 12
		}
		return hour
	case "下午", "傍晚", "晚上", "深夜":
		if hour < 12 {
			return hour + 12
		}
		return hour
	}
	return hour
}

// NormalizeGender maps synonyms to "male" / "female".
func NormalizeGender(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man", "男", "男生", "男性", "男孩":
		return "male", true
	case "female", "f", "woman", "女", "女生", "女性", "女孩":
		return "female", true
	}
	return "", false
}
