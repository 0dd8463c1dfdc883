// Package labor evaluates a weekly timesheet against wage-and-hour rules:
// daily, seventh-day and weekly overtime, meal and rest breaks, minimum wage
// and child labor limits.
package labor

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day, encoded as YYYY-MM-DD.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) DaysSince(o Date) int { return int(d.t.Sub(o.t).Hours() / 24) }
func (d Date) String() string { return d.t.Format(dateLayout) }
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", b, err)
	}
	*d = parsed
	return nil
}

type EmployeeClass string

const (
	ClassRegular EmployeeClass = "regular"
	ClassTipped  EmployeeClass = "tipped"
	ClassYouth   EmployeeClass = "youth"
)

type BreakKind string

const (
	BreakMeal BreakKind = "meal"
	BreakRest BreakKind = "rest"
)

// Timesheet is one employee's workweek. Hours come from Days when present,
// otherwise they are derived from Shifts minus meal breaks.
type Timesheet struct {
	EmployeeRef   string           `json:"employee_ref"`
	Jurisdiction  string           `json:"jurisdiction"`
	WorkweekStart Date             `json:"workweek_start"`
	Days          []WorkDay        `json:"days,omitempty"`
	Shifts        []Shift          `json:"shifts,omitempty"`
	RegularRate   decimal.Decimal  `json:"regular_rate"`
	GrossPay      *decimal.Decimal `json:"gross_pay,omitempty"`
	EmployeeClass EmployeeClass    `json:"employee_class,omitempty"`
	Age           *int             `json:"age,omitempty"`
	SchoolWeek    bool             `json:"school_week,omitempty"`
	Hazardous     bool             `json:"hazardous_occupation,omitempty"`
}

type WorkDay struct {
	Date  Date            `json:"date"`
	Hours decimal.Decimal `json:"hours"`
}

type Shift struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Breaks []Break   `json:"breaks,omitempty"`
}

type Break struct {
	Kind  BreakKind `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b Break) Duration() time.Duration { return b.End.Sub(b.Start) }

// Span is the wall-clock length of the shift, breaks included.
func (s Shift) Span() time.Duration { return s.End.Sub(s.Start) }

// Worked is the span minus meal breaks. Rest breaks are paid time.
func (s Shift) Worked() time.Duration {
	d := s.Span()
	for _, b := range s.Breaks {
		if b.Kind == BreakMeal {
			d -= b.Duration()
		}
	}
	return d
}

func (s Shift) breaks(kind BreakKind) []Break {
	var out []Break
	for _, b := range s.Breaks {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

var (
	zero       = decimal.Zero
	maxDayHour = decimal.NewFromInt(24)
)

func hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Minute)).Div(decimal.NewFromInt(60))
}

// dailyHours validates the week and returns hours per worked date, sorted.
// Errors are attributed to rule.
func (ts Timesheet) dailyHours(rule string) ([]WorkDay, error) {
	if ts.WorkweekStart.IsZero() {
		return nil, rules.Malformed(rule, "workweek_start", "is required")
	}
	days := ts.Days
	if len(days) == 0 {
		if err := ts.validateShifts(rule); err != nil {
			return nil, err
		}
		days = ts.shiftDays()
	}

	end := ts.WorkweekStart.AddDays(6)
	seen := make(map[Date]struct{}, len(days))
	out := make([]WorkDay, 0, len(days))
	for i, d := range days {
		field := fmt.Sprintf("days[%d]", i)
		if d.Date.IsZero() {
			return nil, rules.Malformed(rule, field+".date", "is required")
		}
		if d.Hours.IsNegative() || d.Hours.GreaterThan(maxDayHour) {
			return nil, rules.Malformed(rule, field+".hours", "%s is outside [0, 24]", d.Hours)
		}
		if d.Date.Before(ts.WorkweekStart) || end.Before(d.Date) {
			return nil, rules.Malformed(rule, field+".date", "%s is outside the workweek starting %s", d.Date, ts.WorkweekStart)
		}
		if _, dup := seen[d.Date]; dup {
			return nil, rules.Malformed(rule, field+".date", "duplicate date %s", d.Date)
		}
		seen[d.Date] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// shiftDays sums worked time per shift start date.
func (ts Timesheet) shiftDays() []WorkDay {
	byDate := map[Date]time.Duration{}
	var order []Date
	for _, s := range ts.Shifts {
		d := DateOf(s.Start)
		if _, ok := byDate[d]; !ok {
			order = append(order, d)
		}
		byDate[d] += s.Worked()
	}
	out := make([]WorkDay, 0, len(order))
	for _, d := range order {
		out = append(out, WorkDay{Date: d, Hours: hours(byDate[d])})
	}
	return out
}

func (ts Timesheet) validateShifts(rule string) error {
	for i, s := range ts.Shifts {
		field := fmt.Sprintf("shifts[%d]", i)
		if !s.End.After(s.Start) {
			return rules.Malformed(rule, field+".end", "must be after start")
		}
		for j, b := range s.Breaks {
			bf := fmt.Sprintf("%s.breaks[%d]", field, j)
			if b.Kind != BreakMeal && b.Kind != BreakRest {
				return rules.Malformed(rule, bf+".kind", "unknown break kind %q", b.Kind)
			}
			if !b.End.After(b.Start) {
				return rules.Malformed(rule, bf+".end", "must be after start")
			}
			if b.Start.Before(s.Start) || b.End.After(s.End) {
				return rules.Malformed(rule, bf, "falls outside its shift")
			}
		}
	}
	return nil
}

// rate returns the regular rate, failing when pay math needs it and it is
// not positive.
func (ts Timesheet) rate(rule string) (decimal.Decimal, error) {
	if !ts.RegularRate.IsPositive() {
		return zero, rules.Malformed(rule, "regular_rate", "must be positive, got %s", ts.RegularRate)
	}
	return ts.RegularRate, nil
}

func totalHours(days []WorkDay) decimal.Decimal {
	sum := zero
	for _, d := range days {
		sum = sum.Add(d.Hours)
	}
	return sum
}
