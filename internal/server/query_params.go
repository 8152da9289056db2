package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

func parseDayOfWeek(value string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return day, nil
}

// dateOrToday returns value, or the date of now in loc when value is empty.
func dateOrToday(value string, now time.Time, loc *time.Location) string {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" {
		return trimmed
	}
	return civil.DateOf(now.In(loc)).String()
}

func trimStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
