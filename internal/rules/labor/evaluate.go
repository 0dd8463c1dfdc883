package labor

import (
	"fmt"
	"strings"

	"ledgerguard/internal/rules"
)

// Standards returns the rule standards that govern a jurisdiction, matched
// without regard to case or surrounding space. Federal rules apply everywhere.
func Standards(jurisdiction string) []rules.Standard {
	if strings.ToUpper(strings.TrimSpace(jurisdiction)) == string(rules.StandardCA) {
		return []rules.Standard{rules.StandardCA, rules.StandardFLSA}
	}
	return []rules.Standard{rules.StandardFLSA}
}

// Plan turns the active labor rules into independent checks, in rule order.
// The overtime rules collapse into one check placed at the first of them.
func Plan(active []rules.Rule, ts Timesheet) ([]rules.Check, error) {
	var checks []rules.Check
	var policy OvertimePolicy
	var otRule rules.Rule
	otIndex := -1

	overtime := func(r rules.Rule) {
		if otIndex < 0 {
			otRule, otIndex = r, len(checks)
			checks = append(checks, rules.Check{Rule: r})
		}
	}
	for _, r := range active {
		switch p := r.Params.(type) {
		case *rules.DailyOvertimeParams:
			policy.Daily = p
			overtime(r)
		case *rules.SeventhDayParams:
			policy.SeventhDay = p
			overtime(r)
		case *rules.WeeklyOvertimeParams:
			policy.Weekly = p
			overtime(r)
		case *rules.MealBreakParams:
			checks = append(checks, rules.Check{Rule: r, Evaluate: func() (rules.Result, error) {
				return mealBreakCheck(r, p, ts)
			}})
		case *rules.RestBreakParams:
			checks = append(checks, rules.Check{Rule: r, Evaluate: func() (rules.Result, error) {
				return restBreakCheck(r, p, ts)
			}})
		case *rules.MinimumWageParams:
			checks = append(checks, rules.Check{Rule: r, Evaluate: func() (rules.Result, error) {
				return minimumWageCheck(r, p, ts)
			}})
		case *rules.ChildLaborParams:
			checks = append(checks, rules.Check{Rule: r, Evaluate: func() (rules.Result, error) {
				return childLaborCheck(r, p, ts)
			}})
		default:
			return nil, fmt.Errorf("rule %s: family %s is not a labor rule", r.Code, r.Family())
		}
	}
	if otIndex >= 0 {
		checks[otIndex].Evaluate = func() (rules.Result, error) {
			return overtimeCheck(otRule, policy, ts)
		}
	}
	return checks, nil
}

// Evaluate runs every check sequentially and merges the results. The first
// evaluation error stops the run.
func Evaluate(active []rules.Rule, ts Timesheet) (rules.Result, error) {
	checks, err := Plan(active, ts)
	if err != nil {
		return rules.Result{}, err
	}
	return rules.RunSequential(checks)
}
