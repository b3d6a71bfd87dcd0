/*
Package production covers shoot-day reports: who worked, for how long, and
what it costs once taxes are applied.

KEY CONCEPTS:
  ClockTime: wall-clock time of day (no date), optionally unset
  Overtime:  hours worked past the base shift, computed from clock times
  Entry:     one contractor's shift on a report, valued through tax.Calc
  Report:    one shoot day with its entries

SEE ALSO:
  - overtime.go: Overtime formula
  - entry.go: Entry valuation
  - tax/: Scheme resolution and calculator
*/
package production

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidClock = errors.New("invalid clock time")

// ClockTime is a time of day. The zero value is unset.
type ClockTime struct {
	Hour   int
	Minute int
	Valid  bool
}

// Clock returns a set ClockTime. It does not range-check.
func Clock(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute, Valid: true}
}

// ParseClock accepts "HH:MM" or "HH:MM:SS" (seconds are ignored).
// An empty string yields an unset ClockTime.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockTime{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return ClockTime{}, fmt.Errorf("%w: second in %q", ErrInvalidClock, s)
		}
	}
	return Clock(h, m), nil
}

// MustParseClock is ParseClock for constants and tests.
func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
