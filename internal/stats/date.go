package stats

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// DateLayout is the RFC 5322 layout Gmail uses for most Date headers.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// DisplayLayout renders contact dates in summaries and exports.
const DisplayLayout = "2006-01-02"

// ParseDate parses a Date header value. It tries DateLayout first and then
// the more permissive RFC 5322 grammar, which accepts single-digit days,
// a missing weekday and trailing zone comments such as "(UTC)".
// The returned time keeps the offset written in the header.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, value)
}

// FormatDate renders t with DisplayLayout.
func FormatDate(t time.Time) string {
	return t.Format(DisplayLayout)
}
