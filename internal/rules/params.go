package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Family identifies which evaluator a rule drives and which parameter struct
// it carries.
type Family string

const (
	FamilyDailyOvertime  Family = "daily_overtime"
	FamilySeventhDay     Family = "seventh_day"
	FamilyWeeklyOvertime Family = "weekly_overtime"
	FamilyMealBreak      Family = "meal_break"
	FamilyRestBreak      Family = "rest_break"
	FamilyMinimumWage    Family = "minimum_wage"
	FamilyChildLabor     Family = "child_labor"
	FamilyBalanceSheet   Family = "balance_sheet"
	FamilyDoubleEntry    Family = "double_entry"
	FamilyRevenue        Family = "revenue"
	FamilyDepreciation   Family = "depreciation"
	FamilyImpairment     Family = "impairment"
)

// Params is the tagged variant of rule parameters. Each family has exactly
// one concrete type, validated when the catalog is built.
type Params interface {
	Family() Family
	Validate() error
}

// Category reports which evaluator package owns the family.
func (f Family) Category() Category {
	switch f {
	case FamilyBalanceSheet, FamilyDoubleEntry, FamilyRevenue, FamilyDepreciation, FamilyImpairment:
		return CategoryFinancial
	default:
		return CategoryLabor
	}
}

// NewParams returns a zero parameter struct for family, for decoding.
func NewParams(f Family) (Params, error) {
	switch f {
	case FamilyDailyOvertime:
		return &DailyOvertimeParams{}, nil
	case FamilySeventhDay:
		return &SeventhDayParams{}, nil
	case FamilyWeeklyOvertime:
		return &WeeklyOvertimeParams{}, nil
	case FamilyMealBreak:
		return &MealBreakParams{}, nil
	case FamilyRestBreak:
		return &RestBreakParams{}, nil
	case FamilyMinimumWage:
		return &MinimumWageParams{}, nil
	case FamilyChildLabor:
		return &ChildLaborParams{}, nil
	case FamilyBalanceSheet:
		return &BalanceSheetParams{}, nil
	case FamilyDoubleEntry:
		return &DoubleEntryParams{}, nil
	case FamilyRevenue:
		return &RevenueParams{}, nil
	case FamilyDepreciation:
		return &DepreciationParams{}, nil
	case FamilyImpairment:
		return &ImpairmentParams{}, nil
	default:
		return nil, fmt.Errorf("unknown rule family %q", f)
	}
}

type DailyOvertimeParams struct {
	RegularHours    decimal.Decimal `yaml:"regular_hours"`
	DoubleTimeAfter decimal.Decimal `yaml:"double_time_after"`
}

func (*DailyOvertimeParams) Family() Family { return FamilyDailyOvertime }

func (p *DailyOvertimeParams) Validate() error {
	if err := hoursInDay("regular_hours", p.RegularHours); err != nil {
		return err
	}
	if err := hoursInDay("double_time_after", p.DoubleTimeAfter); err != nil {
		return err
	}
	if !p.DoubleTimeAfter.GreaterThan(p.RegularHours) {
		return fmt.Errorf("double_time_after must exceed regular_hours")
	}
	return nil
}

type SeventhDayParams struct {
	TimeAndHalfHours decimal.Decimal `yaml:"time_and_half_hours"`
}

func (*SeventhDayParams) Family() Family { return FamilySeventhDay }

func (p *SeventhDayParams) Validate() error {
	return hoursInDay("time_and_half_hours", p.TimeAndHalfHours)
}

type WeeklyOvertimeParams struct {
	RegularHours decimal.Decimal `yaml:"regular_hours"`
}

func (*WeeklyOvertimeParams) Family() Family { return FamilyWeeklyOvertime }

func (p *WeeklyOvertimeParams) Validate() error {
	if !p.RegularHours.IsPositive() || p.RegularHours.GreaterThan(decimal.NewFromInt(168)) {
		return fmt.Errorf("regular_hours must be within (0, 168]")
	}
	return nil
}

type MealBreakParams struct {
	FirstMealWithinHours  decimal.Decimal `yaml:"first_meal_within_hours"`
	SecondMealWithinHours decimal.Decimal `yaml:"second_meal_within_hours"`
	MinimumMinutes        int             `yaml:"minimum_minutes"`
	PremiumHours          decimal.Decimal `yaml:"premium_hours"`
}

func (*MealBreakParams) Family() Family { return FamilyMealBreak }

func (p *MealBreakParams) Validate() error {
	if err := hoursInDay("first_meal_within_hours", p.FirstMealWithinHours); err != nil {
		return err
	}
	if err := hoursInDay("second_meal_within_hours", p.SecondMealWithinHours); err != nil {
		return err
	}
	if !p.SecondMealWithinHours.GreaterThan(p.FirstMealWithinHours) {
		return fmt.Errorf("second_meal_within_hours must exceed first_meal_within_hours")
	}
	if p.MinimumMinutes <= 0 {
		return fmt.Errorf("minimum_minutes must be positive")
	}
	if p.PremiumHours.IsNegative() {
		return fmt.Errorf("premium_hours cannot be negative")
	}
	return nil
}

type RestBreakParams struct {
	PeriodHours        decimal.Decimal `yaml:"period_hours"`
	MajorFractionHours decimal.Decimal `yaml:"major_fraction_hours"`
	MinimumShiftHours  decimal.Decimal `yaml:"minimum_shift_hours"`
	MinimumMinutes     int             `yaml:"minimum_minutes"`
	PremiumHours       decimal.Decimal `yaml:"premium_hours"`
}

func (*RestBreakParams) Family() Family { return FamilyRestBreak }

func (p *RestBreakParams) Validate() error {
	if err := hoursInDay("period_hours", p.PeriodHours); err != nil {
		return err
	}
	if p.MajorFractionHours.IsNegative() || !p.MajorFractionHours.LessThan(p.PeriodHours) {
		return fmt.Errorf("major_fraction_hours must be within [0, period_hours)")
	}
	if p.MinimumShiftHours.IsNegative() {
		return fmt.Errorf("minimum_shift_hours cannot be negative")
	}
	if p.MinimumMinutes <= 0 {
		return fmt.Errorf("minimum_minutes must be positive")
	}
	if p.PremiumHours.IsNegative() {
		return fmt.Errorf("premium_hours cannot be negative")
	}
	return nil
}

type MinimumWageParams struct {
	Rate decimal.Decimal `yaml:"rate"`
	// Optional class-specific floors; Rate applies when unset.
	TippedRate *decimal.Decimal `yaml:"tipped_rate"`
	YouthRate  *decimal.Decimal `yaml:"youth_rate"`
}

func (*MinimumWageParams) Family() Family { return FamilyMinimumWage }

func (p *MinimumWageParams) Validate() error {
	if !p.Rate.IsPositive() {
		return fmt.Errorf("rate must be positive")
	}
	for name, r := range map[string]*decimal.Decimal{"tipped_rate": p.TippedRate, "youth_rate": p.YouthRate} {
		if r != nil && (!r.IsPositive() || r.GreaterThan(p.Rate)) {
			return fmt.Errorf("%s must be within (0, rate]", name)
		}
	}
	return nil
}

type ChildLaborParams struct {
	MinimumAge         int             `yaml:"minimum_age"`
	RestrictedBelowAge int             `yaml:"restricted_below_age"`
	AdultAge           int             `yaml:"adult_age"`
	SchoolDayHours     decimal.Decimal `yaml:"school_day_hours"`
	SchoolWeekHours    decimal.Decimal `yaml:"school_week_hours"`
	NonSchoolDayHours  decimal.Decimal `yaml:"non_school_day_hours"`
	NonSchoolWeekHours decimal.Decimal `yaml:"non_school_week_hours"`
}

func (*ChildLaborParams) Family() Family { return FamilyChildLabor }

func (p *ChildLaborParams) Validate() error {
	if p.MinimumAge <= 0 || p.RestrictedBelowAge <= p.MinimumAge || p.AdultAge < p.RestrictedBelowAge {
		return fmt.Errorf("ages must satisfy 0 < minimum_age < restricted_below_age <= adult_age")
	}
	for name, h := range map[string]decimal.Decimal{"school_day_hours": p.SchoolDayHours, "non_school_day_hours": p.NonSchoolDayHours} {
		if err := hoursInDay(name, h); err != nil {
			return err
		}
	}
	if !p.SchoolWeekHours.IsPositive() || !p.NonSchoolWeekHours.IsPositive() {
		return fmt.Errorf("weekly hour limits must be positive")
	}
	return nil
}

type BalanceSheetParams struct {
	// Tolerance is the largest absolute imbalance accepted; zero means exact.
	Tolerance decimal.Decimal `yaml:"tolerance"`
}

func (*BalanceSheetParams) Family() Family { return FamilyBalanceSheet }

func (p *BalanceSheetParams) Validate() error { return nonNegative("tolerance", p.Tolerance) }

type DoubleEntryParams struct {
	Tolerance            decimal.Decimal `yaml:"tolerance"`
	MinDescriptionLength int             `yaml:"min_description_length"`
}

func (*DoubleEntryParams) Family() Family { return FamilyDoubleEntry }

func (p *DoubleEntryParams) Validate() error {
	if p.MinDescriptionLength < 0 {
		return fmt.Errorf("min_description_length cannot be negative")
	}
	return nonNegative("tolerance", p.Tolerance)
}

type RevenueParams struct {
	AllocationTolerance decimal.Decimal `yaml:"allocation_tolerance"`
	// IFRS 15 adds customer, commercial substance, collectability,
	// variable consideration and progress checks on top of ASC 606.
	IFRS bool `yaml:"ifrs"`
}

func (*RevenueParams) Family() Family { return FamilyRevenue }

func (p *RevenueParams) Validate() error {
	return nonNegative("allocation_tolerance", p.AllocationTolerance)
}

type DepreciationParams struct {
	Methods   []string        `yaml:"methods"`
	Tolerance decimal.Decimal `yaml:"tolerance"`
}

func (*DepreciationParams) Family() Family { return FamilyDepreciation }

func (p *DepreciationParams) Validate() error {
	if len(p.Methods) == 0 {
		return fmt.Errorf("methods cannot be empty")
	}
	return nonNegative("tolerance", p.Tolerance)
}

// Supports reports whether method is allowed under this rule.
func (p *DepreciationParams) Supports(method string) bool {
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type ImpairmentParams struct {
	Tolerance decimal.Decimal `yaml:"tolerance"`
}

func (*ImpairmentParams) Family() Family { return FamilyImpairment }

func (p *ImpairmentParams) Validate() error { return nonNegative("tolerance", p.Tolerance) }

var hoursPerDay = decimal.NewFromInt(24)

func hoursInDay(name string, d decimal.Decimal) error {
	if !d.IsPositive() || d.GreaterThan(hoursPerDay) {
		return fmt.Errorf("%s must be within (0, 24]", name)
	}
	return nil
}

func nonNegative(name string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%s cannot be negative", name)
	}
	return nil
}

const (
	MethodStraightLine     = "straight_line"
	MethodDecliningBalance = "declining_balance"
)
