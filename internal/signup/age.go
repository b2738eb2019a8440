package signup

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of a date input.
const DateLayout = "2006-01-02"

// Clock returns the current time. Tests pin it to a fixed day.
type Clock func() time.Time

// ParseDateOfBirth parses a YYYY-MM-DD date. Partial input is rejected.
func ParseDateOfBirth(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateOfBirth, raw)
	}
	return t, nil
}

// AgeOn returns the number of completed years between birth and today.
// A birthday falling on today counts as completed.
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}
