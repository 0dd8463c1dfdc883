package labor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

func asDuration(h decimal.Decimal) time.Duration {
	return time.Duration(h.Mul(decimal.NewFromInt(int64(time.Hour))).IntPart())
}

// mealBreakCheck judges each shift by its span. Every meal break under
// MinimumMinutes is reported on its own and does not count as a meal. Of the
// rest, the first must start no later than FirstMealWithinHours into a shift
// longer than that, and the second likewise for SecondMealWithinHours.
func mealBreakCheck(rule rules.Rule, p *rules.MealBreakParams, ts Timesheet) (rules.Result, error) {
	if err := ts.validateShifts(rule.Code); err != nil {
		return rules.Result{}, err
	}
	first := asDuration(p.FirstMealWithinHours)
	second := asDuration(p.SecondMealWithinHours)
	minimum := time.Duration(p.MinimumMinutes) * time.Minute

	var drafts []rules.ViolationDraft
	premiumDays := map[Date]int{}
	for i, s := range ts.Shifts {
		span := s.Span()
		if span <= first {
			continue
		}
		before := len(drafts)
		var meals []Break
		for _, b := range s.breaks(BreakMeal) {
			if b.Duration() < minimum {
				drafts = append(drafts, shortMeal(s, i, b, minimum))
				continue
			}
			meals = append(meals, b)
		}
		drafts = append(drafts, judgeMeal(s, i, meals, 0, first,
			"MEAL_BREAK_NOT_TAKEN", "MEAL_BREAK_LATE", "")...)
		if span > second {
			drafts = append(drafts, judgeMeal(s, i, meals, 1, second,
				"SECOND_MEAL_BREAK_NOT_TAKEN", "SECOND_MEAL_BREAK_LATE", rules.SeverityCritical)...)
		}
		if len(drafts) > before {
			day := DateOf(s.Start)
			if _, ok := premiumDays[day]; !ok {
				premiumDays[day] = before
			}
		}
	}
	if err := applyPremium(rule, ts, p.PremiumHours, drafts, premiumDays); err != nil {
		return rules.Result{}, err
	}
	return rules.Finish(rule, drafts, nil), nil
}

func shiftDetails(s Shift, idx int) map[string]string {
	return map[string]string{
		"shift":      strconv.Itoa(idx),
		"shift_date": DateOf(s.Start).String(),
		"span_hours": hours(s.Span()).StringFixed(2),
	}
}

func shortMeal(s Shift, idx int, b Break, minimum time.Duration) rules.ViolationDraft {
	details := shiftDetails(s, idx)
	details["break_start"] = b.Start.Format(time.RFC3339)
	details["break_minutes"] = strconv.FormatInt(int64(b.Duration()/time.Minute), 10)
	return rules.ViolationDraft{
		Code:        "MEAL_BREAK_TOO_SHORT",
		Severity:    rules.SeverityHigh,
		Description: fmt.Sprintf("Meal break at %s lasted %d minutes, under the %d minute minimum", b.Start.Format("15:04"), int(b.Duration()/time.Minute), int(minimum/time.Minute)),
		Details:     details,
	}
}

// judgeMeal checks the n-th qualifying meal break of shift s against deadline.
func judgeMeal(s Shift, idx int, meals []Break, n int, deadline time.Duration,
	missing, late string, missingSeverity rules.Severity) []rules.ViolationDraft {
	details := shiftDetails(s, idx)
	ordinal := "first"
	if n == 1 {
		ordinal = "second"
	}
	if len(meals) <= n {
		return []rules.ViolationDraft{{
			Code:        missing,
			Severity:    missingSeverity,
			Description: fmt.Sprintf("No %s meal break in a %s hour shift", ordinal, hours(s.Span()).StringFixed(2)),
			Details:     details,
		}}
	}
	m := meals[n]
	details["break_start"] = m.Start.Format(time.RFC3339)
	details["break_minutes"] = strconv.FormatInt(int64(m.Duration()/time.Minute), 10)
	if m.Start.Sub(s.Start) > deadline {
		return []rules.ViolationDraft{{
			Code:        late,
			Severity:    rules.SeverityHigh,
			Description: fmt.Sprintf("The %s meal break started after hour %s of the shift", ordinal, hours(deadline).String()),
			Details:     details,
		}}
	}
	return nil
}

// RequiredRestBreaks is one break per full period plus one for a remaining
// major fraction. Shifts under MinimumShiftHours need none; the default
// catalog sets it to zero so the fraction alone decides short shifts.
func RequiredRestBreaks(worked decimal.Decimal, p *rules.RestBreakParams) int {
	if worked.LessThan(p.MinimumShiftHours) {
		return 0
	}
	periods := worked.Div(p.PeriodHours).Floor()
	required := int(periods.IntPart())
	if worked.Sub(periods.Mul(p.PeriodHours)).GreaterThan(p.MajorFractionHours) {
		required++
	}
	return required
}

func restBreakCheck(rule rules.Rule, p *rules.RestBreakParams, ts Timesheet) (rules.Result, error) {
	if err := ts.validateShifts(rule.Code); err != nil {
		return rules.Result{}, err
	}
	minimum := time.Duration(p.MinimumMinutes) * time.Minute

	var drafts []rules.ViolationDraft
	premiumDays := map[Date]int{}
	for i, s := range ts.Shifts {
		worked := hours(s.Worked())
		required := RequiredRestBreaks(worked, p)
		before := len(drafts)

		taken := 0
		for _, b := range s.breaks(BreakRest) {
			if b.Duration() < minimum {
				drafts = append(drafts, rules.ViolationDraft{
					Code:        "REST_BREAK_TOO_SHORT",
					Severity:    rules.SeverityMedium,
					Description: fmt.Sprintf("Rest break lasted %d minutes, under the %d minute minimum", int(b.Duration()/time.Minute), p.MinimumMinutes),
					Details: map[string]string{
						"shift":       strconv.Itoa(i),
						"shift_date":  DateOf(s.Start).String(),
						"break_start": b.Start.Format(time.RFC3339),
					},
				})
				continue
			}
			taken++
		}
		if taken < required {
			drafts = append(drafts, rules.ViolationDraft{
				Code:        "REST_BREAK_NOT_TAKEN",
				Severity:    rules.SeverityHigh,
				Description: fmt.Sprintf("%d of %d required rest breaks taken in a %s hour shift", taken, required, worked.StringFixed(2)),
				Details: map[string]string{
					"shift":        strconv.Itoa(i),
					"shift_date":   DateOf(s.Start).String(),
					"required":     strconv.Itoa(required),
					"taken":        strconv.Itoa(taken),
					"worked_hours": worked.StringFixed(2),
				},
			})
		}
		if len(drafts) > before {
			day := DateOf(s.Start)
			if _, ok := premiumDays[day]; !ok {
				premiumDays[day] = before
			}
		}
	}
	if err := applyPremium(rule, ts, p.PremiumHours, drafts, premiumDays); err != nil {
		return rules.Result{}, err
	}
	return rules.Finish(rule, drafts, nil), nil
}

// applyPremium puts one premium of premiumHours at the regular rate on the
// first violation of each affected workday.
func applyPremium(rule rules.Rule, ts Timesheet, premiumHours decimal.Decimal, drafts []rules.ViolationDraft, firstByDay map[Date]int) error {
	if len(firstByDay) == 0 || !premiumHours.IsPositive() {
		return nil
	}
	rate, err := ts.rate(rule.Code)
	if err != nil {
		return err
	}
	premium := premiumHours.Mul(rate)
	for _, i := range firstByDay {
		drafts[i].FinancialImpact = rules.Impact(premium)
	}
	return nil
}
