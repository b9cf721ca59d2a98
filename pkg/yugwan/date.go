package yugwan

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date that reads and writes JSON as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("unable to parse date: %s", s)
	}
	return Date{Time: t}, nil
}

// UnmarshalJSON implements json.Unmarshaler for Date
func (d *Date) UnmarshalJSON(data []byte) error {
	// Remove quotes
	str := strings.Trim(string(data), `"`)

	// Handle null/empty
	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}

	// Try parsing as date only first (YYYY-MM-DD)
	t, err := time.Parse(dateLayout, str)
	if err == nil {
		d.Time = t
		return nil
	}

	// Try parsing as full timestamp (RFC3339)
	t, err = time.Parse(time.RFC3339, str)
	if err == nil {
		d.Time = t
		return nil
	}

	return fmt.Errorf("unable to parse date: %s", str)
}

// MarshalJSON implements json.Marshaler for Date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date
func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}
