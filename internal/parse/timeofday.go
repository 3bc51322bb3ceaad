package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRe = regexp.MustCompile(`^(\d{1,2})\s*:\s*(\d{2})(?:\s*:\s*(\d{2}))?$`)

// TimeOfDay holds the components of a clock-style value such as "01:20:05".
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String renders the value in HH:MM:SS form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay parses the processing/remaining time strings carried by machine
// status records. They are clock readings from the controller, so hours are
// capped at 23 and seconds are optional.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	// Controllers occasionally report full-width colons.
	s = strings.ReplaceAll(s, "：", ":")

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("unable to parse time of day: %q", raw)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if hour > 23 || minute > 59 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day out of range: %q", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// IsTimeOfDay reports whether raw reads as a clock value. An empty value
// counts as one.
func IsTimeOfDay(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	_, err := ParseTimeOfDay(raw)
	return err == nil
}
