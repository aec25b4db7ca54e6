package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimezoneLocation resolves a user time zone. Supported forms:
//   - IANA names such as "Europe/Berlin"
//   - "UTC", "GMT" or an empty string
//   - fixed offsets: "UTC+3", "UTC-7", "UTC+5:30", "+3", "-03:30"
//
// Fixed offsets produce a time.FixedZone and ignore daylight saving.
func ParseTimezoneLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	switch strings.ToUpper(tz) {
	case "", "UTC", "ETC/UTC", "GMT":
		return time.UTC, nil
	}

	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}

	offset, ok := parseOffset(tz)
	if !ok {
		return nil, fmt.Errorf("unsupported timezone %q", tz)
	}
	return time.FixedZone(offsetName(offset), offset), nil
}

// LocalDate formats t as YYYY-MM-DD in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func parseOffset(tz string) (int, bool) {
	s := tz
	if len(s) >= 3 && strings.EqualFold(s[:3], "UTC") {
		s = strings.TrimSpace(s[3:])
		if s == "" {
			return 0, true
		}
	}
	if len(s) < 2 {
		return 0, false
	}

	var sign int
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, false
	}

	hh, mm, found := strings.Cut(s[1:], ":")
	if !found {
		mm = "0"
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 14 || m < 0 || m >= 60 {
		return 0, false
	}
	return sign * (h*3600 + m*60), true
}

func offsetName(offset int) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
