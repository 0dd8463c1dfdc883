package labor

import (
	"fmt"
	"strconv"

	"ledgerguard/internal/rules"
)

func childLaborCheck(rule rules.Rule, p *rules.ChildLaborParams, ts Timesheet) (rules.Result, error) {
	if ts.Age == nil {
		return rules.Finish(rule, nil, nil), nil
	}
	age := *ts.Age
	if age < 0 || age > 120 {
		return rules.Result{}, rules.Malformed(rule.Code, "age", "%d is not a plausible age", age)
	}
	days, err := ts.dailyHours(rule.Code)
	if err != nil {
		return rules.Result{}, err
	}

	ageDetail := map[string]string{"age": strconv.Itoa(age)}
	var drafts []rules.ViolationDraft
	if age < p.MinimumAge {
		drafts = append(drafts, rules.ViolationDraft{
			Code:        "CHILD_LABOR_UNDERAGE",
			Severity:    rules.SeverityCritical,
			Description: fmt.Sprintf("Employee aged %d is below the minimum working age of %d", age, p.MinimumAge),
			Details:     ageDetail,
		})
	}
	if age < p.AdultAge && ts.Hazardous {
		drafts = append(drafts, rules.ViolationDraft{
			Code:        "CHILD_LABOR_HAZARDOUS_OCCUPATION",
			Severity:    rules.SeverityCritical,
			Description: fmt.Sprintf("Employee aged %d works in a hazardous occupation", age),
			Details:     ageDetail,
		})
	}
	if age >= p.MinimumAge && age < p.RestrictedBelowAge {
		dayLimit, weekLimit := p.NonSchoolDayHours, p.NonSchoolWeekHours
		if ts.SchoolWeek {
			dayLimit, weekLimit = p.SchoolDayHours, p.SchoolWeekHours
		}
		for _, d := range days {
			if d.Hours.GreaterThan(dayLimit) {
				drafts = append(drafts, rules.ViolationDraft{
					Code:     "CHILD_LABOR_DAILY_HOURS_EXCEEDED",
					Severity: rules.SeverityHigh,
					Description: fmt.Sprintf("Worked %s hours on %s, limit is %s",
						d.Hours, d.Date, dayLimit),
					Details: map[string]string{"date": d.Date.String(), "hours": d.Hours.String(), "limit": dayLimit.String()},
				})
			}
		}
		if total := totalHours(days); total.GreaterThan(weekLimit) {
			drafts = append(drafts, rules.ViolationDraft{
				Code:        "CHILD_LABOR_WEEKLY_HOURS_EXCEEDED",
				Severity:    rules.SeverityHigh,
				Description: fmt.Sprintf("Worked %s hours this week, limit is %s", total, weekLimit),
				Details:     map[string]string{"hours": total.String(), "limit": weekLimit.String()},
			})
		}
	}
	return rules.Finish(rule, drafts, nil), nil
}
