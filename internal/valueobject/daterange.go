package valueobject

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var ErrInvalidDateRange = errors.New("start date must be on or before end date")

// DateRange is an inclusive range of calendar days. Times are truncated to
// midnight UTC on construction.
type DateRange struct {
	start time.Time
	end   time.Time
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := Day(start), Day(end)
	if s.After(e) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{start: s, end: e}, nil
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

func MustDateRange(start, end string) DateRange {
	r, err := ParseDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func (r DateRange) Start() time.Time { return r.start }
func (r DateRange) End() time.Time   { return r.end }
func (r DateRange) IsZero() bool     { return r.start.IsZero() && r.end.IsZero() }

// TotalDays counts both ends.
func (r DateRange) TotalDays() int {
	return DaysBetween(r.start, r.end) + 1
}

func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.start) && !d.After(r.end)
}

func (r DateRange) ContainsRange(o DateRange) bool {
	return !o.start.Before(r.start) && !o.end.After(r.end)
}

func (r DateRange) Overlaps(o DateRange) bool {
	return !r.end.Before(o.start) && !o.end.Before(r.start)
}

// Intersect returns the shared days of r and o; ok is false when they are disjoint.
func (r DateRange) Intersect(o DateRange) (DateRange, bool) {
	if !r.Overlaps(o) {
		return DateRange{}, false
	}
	s := r.start
	if o.start.After(s) {
		s = o.start
	}
	e := r.end
	if o.end.Before(e) {
		e = o.end
	}
	return DateRange{start: s, end: e}, true
}

// OverlapPercentage is the share of r's days that fall inside o.
func (r DateRange) OverlapPercentage(o DateRange) Percentage {
	in, ok := r.Intersect(o)
	if !ok {
		return ZeroPercentage()
	}
	return PercentageOf(decimal.NewFromInt(int64(in.TotalDays())), decimal.NewFromInt(int64(r.TotalDays())))
}

func (r DateRange) Equal(o DateRange) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

func (r DateRange) String() string {
	return "[" + r.start.Format(DateLayout) + ", " + r.end.Format(DateLayout) + "]"
}
