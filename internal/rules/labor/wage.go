package labor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

// floor returns the minimum rate for the employee class. Class rates fall
// back to the general rate when the rule does not define them.
func floor(p *rules.MinimumWageParams, class EmployeeClass) decimal.Decimal {
	switch {
	case class == ClassTipped && p.TippedRate != nil:
		return *p.TippedRate
	case class == ClassYouth && p.YouthRate != nil:
		return *p.YouthRate
	default:
		return p.Rate
	}
}

func minimumWageCheck(rule rules.Rule, p *rules.MinimumWageParams, ts Timesheet) (rules.Result, error) {
	days, err := ts.dailyHours(rule.Code)
	if err != nil {
		return rules.Result{}, err
	}
	switch ts.EmployeeClass {
	case "", ClassRegular, ClassTipped, ClassYouth:
	default:
		return rules.Result{}, rules.Malformed(rule.Code, "employee_class", "unknown class %q", ts.EmployeeClass)
	}
	total := totalHours(days)
	if !total.IsPositive() {
		return rules.Finish(rule, nil, nil), nil
	}

	minimum := floor(p, ts.EmployeeClass)
	var effective, shortfall decimal.Decimal
	if ts.GrossPay != nil {
		if ts.GrossPay.IsNegative() {
			return rules.Result{}, rules.Malformed(rule.Code, "gross_pay", "cannot be negative")
		}
		effective = ts.GrossPay.Div(total)
		shortfall = minimum.Mul(total).Sub(*ts.GrossPay)
	} else {
		rate, err := ts.rate(rule.Code)
		if err != nil {
			return rules.Result{}, err
		}
		effective = rate
		shortfall = minimum.Sub(rate).Mul(total)
	}
	if !effective.LessThan(minimum) {
		return rules.Finish(rule, nil, nil), nil
	}
	return rules.Finish(rule, []rules.ViolationDraft{{
		Code:     "MINIMUM_WAGE",
		Severity: rules.SeverityCritical,
		Description: fmt.Sprintf("Effective rate %s is below the minimum of %s",
			effective.StringFixed(2), minimum.StringFixed(2)),
		FinancialImpact: rules.Impact(shortfall),
		Details: map[string]string{
			"effective_rate": effective.StringFixed(2),
			"minimum_rate":   minimum.StringFixed(2),
			"hours":          total.String(),
		},
	}}, nil), nil
}
