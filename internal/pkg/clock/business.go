package clock

import (
	"fmt"
	"time"
)

// Business resolves calendar questions in the tenant's canonical timezone.
//
// Generators and the escalation rules bucket timestamps by "today" as the
// business sees it, never as the host running the process sees it. Every
// bucketing helper therefore goes through the configured location.
type Business struct {
	loc *time.Location
}

// NewBusiness loads the named IANA timezone, e.g. "Asia/Jakarta".
func NewBusiness(tz string) (*Business, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("clock: load business timezone %q: %w", tz, err)
	}
	return &Business{loc: loc}, nil
}

// MustBusiness is a convenience for tests and defaults; it panics on a bad name.
func MustBusiness(tz string) *Business {
	b, err := NewBusiness(tz)
	if err != nil {
		panic(err)
	}
	return b
}

// Location returns the business location.
func (b *Business) Location() *time.Location {
	return b.loc
}

// In converts t into the business timezone.
func (b *Business) In(t time.Time) time.Time {
	return t.In(b.loc)
}

// StartOfDay returns midnight of t's calendar day in the business timezone.
func (b *Business) StartOfDay(t time.Time) time.Time {
	lt := t.In(b.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, b.loc)
}

// EndOfDay returns the last instant before the next midnight.
func (b *Business) EndOfDay(t time.Time) time.Time {
	return b.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// At returns t's calendar day at the given wall-clock hour and minute.
func (b *Business) At(t time.Time, hour, minute int) time.Time {
	lt := t.In(b.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), hour, minute, 0, 0, b.loc)
}

// DaysBetween returns the number of whole calendar days from a to z.
//
// The result is negative when z's day precedes a's day. The dates are
// re-anchored in UTC before subtracting, so a daylight-saving shift
// (a 23h or 25h local day) cannot skew the count.
func (b *Business) DaysBetween(a, z time.Time) int {
	from := a.In(b.loc)
	to := z.In(b.loc)

	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	return int(toDay.Sub(fromDay) / (24 * time.Hour))
}

// DateBucket formats t as a stable per-day bucket, e.g. "2026-02-14".
func (b *Business) DateBucket(t time.Time) string {
	return t.In(b.loc).Format("2006-01-02")
}

// HourBucket formats t as a stable per-hour bucket, e.g. "2026-02-14T09".
func (b *Business) HourBucket(t time.Time) string {
	return t.In(b.loc).Format("2006-01-02T15")
}
