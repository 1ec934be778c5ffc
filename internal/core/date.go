package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day. The wrapped time is always
// midnight UTC so that year/month/day never shift with the host timezone.
type Date struct {
	time.Time
}

// MonthKey is the (year, month) bucket used for grouping. Month is 1-based.
type MonthKey struct {
	Year  int
	Month int
}

// NewDate creates a new Date from year, month (1-12), day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date a clock reading falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses "YYYY-MM-DD" by splitting on '-' and building the date
// from its integer parts. Out-of-range components are rejected rather than
// normalised.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		if !allDigits(p) {
			return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]
	if year < 1 || month < 1 || month > 12 || day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return NewDate(year, month, day), nil
}

// allDigits rejects the signs strconv.Atoi would otherwise accept.
func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// MonthKey returns the bucket the date belongs to.
func (d Date) MonthKey() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// AddMonths advances the month field by n. When the day does not exist in
// the target month it is clamped to the month's last day, so Jan 31 + 1
// becomes Feb 28 (or 29).
func (d Date) AddMonths(n int) Date {
	total := d.Month() - 1 + n
	year := d.Year() + total/12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	month := total + 1
	day := d.Day()
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedDate, b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Contains reports whether d falls in the bucket.
func (k MonthKey) Contains(d Date) bool {
	return d.Year() == k.Year && d.Month() == k.Month
}

func (k MonthKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return ErrInvalidMonth
	}
	if k.Year < 1 {
		return ErrInvalidYear
	}
	return nil
}
