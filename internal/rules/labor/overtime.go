package labor

import (
	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

// OvertimePolicy selects which overtime rules apply. A nil member is off.
type OvertimePolicy struct {
	Daily      *rules.DailyOvertimeParams
	SeventhDay *rules.SeventhDayParams
	Weekly     *rules.WeeklyOvertimeParams
}

// DayHours is the per-day classification from the daily and seventh-day
// rules. Weekly conversion is not reflected here.
type DayHours struct {
	Date        Date            `json:"date"`
	Hours       decimal.Decimal `json:"hours"`
	Regular     decimal.Decimal `json:"regular"`
	TimeAndHalf decimal.Decimal `json:"time_and_half"`
	DoubleTime  decimal.Decimal `json:"double_time"`
	SeventhDay  bool            `json:"seventh_day,omitempty"`
}

type Breakdown struct {
	Days []DayHours `json:"days"`
	// WeeklyOvertime is the share of regular hours moved to 1.5x by the
	// weekly threshold. It is already included in TimeAndHalf.
	WeeklyOvertime decimal.Decimal `json:"weekly_overtime"`
	Regular        decimal.Decimal `json:"regular"`
	TimeAndHalf    decimal.Decimal `json:"time_and_half"`
	DoubleTime     decimal.Decimal `json:"double_time"`
	Total          decimal.Decimal `json:"total"`
}

var (
	oneAndHalf = decimal.RequireFromString("1.5")
	two        = decimal.NewFromInt(2)
)

// Overtime reports whether any hour is paid above the regular rate.
func (b Breakdown) Overtime() bool {
	return b.TimeAndHalf.IsPositive() || b.DoubleTime.IsPositive()
}

// Pay is the wage owed at rate for the breakdown.
func (b Breakdown) Pay(rate decimal.Decimal) decimal.Decimal {
	return b.Regular.Mul(rate).
		Add(b.TimeAndHalf.Mul(rate).Mul(oneAndHalf)).
		Add(b.DoubleTime.Mul(rate).Mul(two))
}

// ComputeOvertime classifies a week's hours. days must be sorted and fall
// inside the workweek starting at start. The result depends only on its
// inputs.
func ComputeOvertime(start Date, days []WorkDay, p OvertimePolicy) Breakdown {
	b := Breakdown{Days: make([]DayHours, 0, len(days))}
	seventh := start.AddDays(6)
	allWorked := workedEveryDay(start, days)

	for _, d := range days {
		dh := DayHours{Date: d.Date, Hours: d.Hours, Regular: d.Hours}
		switch {
		case p.SeventhDay != nil && allWorked && d.Date == seventh:
			limit := p.SeventhDay.TimeAndHalfHours
			dh.SeventhDay = true
			dh.Regular = zero
			dh.TimeAndHalf = decimal.Min(d.Hours, limit)
			dh.DoubleTime = decimal.Max(d.Hours.Sub(limit), zero)
		case p.Daily != nil:
			reg, dt := p.Daily.RegularHours, p.Daily.DoubleTimeAfter
			dh.Regular = decimal.Min(d.Hours, reg)
			dh.TimeAndHalf = decimal.Min(decimal.Max(d.Hours.Sub(reg), zero), dt.Sub(reg))
			dh.DoubleTime = decimal.Max(d.Hours.Sub(dt), zero)
		}
		b.Days = append(b.Days, dh)
		b.Regular = b.Regular.Add(dh.Regular)
		b.TimeAndHalf = b.TimeAndHalf.Add(dh.TimeAndHalf)
		b.DoubleTime = b.DoubleTime.Add(dh.DoubleTime)
		b.Total = b.Total.Add(d.Hours)
	}

	// Hours already paid at a premium by the daily rules never count
	// toward the weekly threshold.
	if p.Weekly != nil {
		excess := decimal.Max(b.Regular.Sub(p.Weekly.RegularHours), zero)
		b.WeeklyOvertime = excess
		b.Regular = b.Regular.Sub(excess)
		b.TimeAndHalf = b.TimeAndHalf.Add(excess)
	}
	return b
}

func workedEveryDay(start Date, days []WorkDay) bool {
	worked := make(map[Date]bool, len(days))
	for _, d := range days {
		if d.Hours.IsPositive() {
			worked[d.Date] = true
		}
	}
	for i := 0; i < 7; i++ {
		if !worked[start.AddDays(i)] {
			return false
		}
	}
	return true
}

// overtimeCheck is a single evaluation covering every active overtime rule,
// since the weekly rule depends on the daily classification. Violations are
// attributed to the first active overtime rule.
func overtimeCheck(rule rules.Rule, p OvertimePolicy, ts Timesheet) (rules.Result, error) {
	days, err := ts.dailyHours(rule.Code)
	if err != nil {
		return rules.Result{}, err
	}
	b := ComputeOvertime(ts.WorkweekStart, days, p)
	if ts.GrossPay == nil || !b.Overtime() {
		return rules.Finish(rule, nil, b), nil
	}

	rate, err := ts.rate(rule.Code)
	if err != nil {
		return rules.Result{}, err
	}
	owed := b.Pay(rate)
	if !ts.GrossPay.LessThan(owed) {
		return rules.Finish(rule, nil, b), nil
	}
	shortfall := owed.Sub(*ts.GrossPay)
	return rules.Finish(rule, []rules.ViolationDraft{{
		Code:            "UNPAID_OVERTIME",
		Severity:        rules.SeverityHigh,
		Description:     "Reported pay is below wages owed including overtime premiums",
		FinancialImpact: rules.Impact(shortfall),
		Details: map[string]string{
			"owed":          owed.StringFixed(2),
			"reported":      ts.GrossPay.StringFixed(2),
			"time_and_half": b.TimeAndHalf.String(),
			"double_time":   b.DoubleTime.String(),
		},
	}}, b), nil
}
