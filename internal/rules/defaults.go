package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	catalogEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	caWage2024   = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// DefaultRules is the compiled-in rule set. Order is significant: it fixes
// the order in which violations are emitted.
func DefaultRules() []Rule {
	return []Rule{
		// California
		{
			Code: "CA_DAILY_OVERTIME", Standard: StandardCA, Reference: "CA_LABOR_CODE_510",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &DailyOvertimeParams{RegularHours: dec("8"), DoubleTimeAfter: dec("12")},
		},
		{
			Code: "CA_SEVENTH_DAY", Standard: StandardCA, Reference: "CA_LABOR_CODE_510",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &SeventhDayParams{TimeAndHalfHours: dec("8")},
		},
		{
			Code: "CA_MEAL_BREAK", Standard: StandardCA, Reference: "CA_LABOR_CODE_512",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &MealBreakParams{
				FirstMealWithinHours:  dec("5"),
				SecondMealWithinHours: dec("10"),
				MinimumMinutes:        30,
				PremiumHours:          dec("1"),
			},
		},
		{
			Code: "CA_REST_BREAK", Standard: StandardCA, Reference: "CA_LABOR_CODE_226_7",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &RestBreakParams{
				PeriodHours:        dec("4"),
				MajorFractionHours: dec("2"),
				MinimumShiftHours:  dec("0"),
				MinimumMinutes:     10,
				PremiumHours:       dec("1"),
			},
		},
		{
			Code: "CA_MINIMUM_WAGE", Standard: StandardCA, Reference: "CA_MINIMUM_WAGE",
			Active: true, Severity: SeverityCritical, EffectiveFrom: caWage2024,
			Params: &MinimumWageParams{Rate: dec("16.00")},
		},
		// Federal
		{
			Code: "FLSA_WEEKLY_OVERTIME", Standard: StandardFLSA, Reference: "FLSA_OVERTIME",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &WeeklyOvertimeParams{RegularHours: dec("40")},
		},
		{
			Code: "FLSA_MINIMUM_WAGE", Standard: StandardFLSA, Reference: "FLSA_MINIMUM_WAGE",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &MinimumWageParams{Rate: dec("7.25"), TippedRate: decPtr("2.13"), YouthRate: decPtr("4.25")},
		},
		{
			Code: "FLSA_CHILD_LABOR", Standard: StandardFLSA, Reference: "FLSA_CHILD_LABOR",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &ChildLaborParams{
				MinimumAge:         14,
				RestrictedBelowAge: 16,
				AdultAge:           18,
				SchoolDayHours:     dec("3"),
				SchoolWeekHours:    dec("18"),
				NonSchoolDayHours:  dec("8"),
				NonSchoolWeekHours: dec("40"),
			},
		},
		// US GAAP
		{
			Code: "GAAP_BALANCE_SHEET", Standard: StandardGAAP, Reference: "GAAP_FUNDAMENTAL_EQUATION",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &BalanceSheetParams{},
		},
		{
			Code: "GAAP_DOUBLE_ENTRY", Standard: StandardGAAP, Reference: "GAAP_DOUBLE_ENTRY",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &DoubleEntryParams{MinDescriptionLength: 5},
		},
		{
			Code: "GAAP_REVENUE_RECOGNITION", Standard: StandardGAAP, Reference: "ASC_606",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &RevenueParams{AllocationTolerance: dec("0.01")},
		},
		{
			Code: "GAAP_DEPRECIATION", Standard: StandardGAAP, Reference: "ASC_360",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &DepreciationParams{Methods: []string{MethodStraightLine, MethodDecliningBalance}, Tolerance: dec("0.01")},
		},
		// IFRS
		{
			Code: "IFRS_BALANCE_SHEET", Standard: StandardIFRS, Reference: "IAS_1",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &BalanceSheetParams{},
		},
		{
			Code: "IFRS_DOUBLE_ENTRY", Standard: StandardIFRS, Reference: "CONCEPTUAL_FRAMEWORK",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &DoubleEntryParams{MinDescriptionLength: 5},
		},
		{
			Code: "IFRS_15_REVENUE", Standard: StandardIFRS, Reference: "IFRS_15",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &RevenueParams{AllocationTolerance: dec("0.01"), IFRS: true},
		},
		{
			Code: "IAS_16_DEPRECIATION", Standard: StandardIFRS, Reference: "IAS_16",
			Active: true, Severity: SeverityHigh, EffectiveFrom: catalogEpoch,
			Params: &DepreciationParams{Methods: []string{MethodStraightLine, MethodDecliningBalance}, Tolerance: dec("0.01")},
		},
		{
			Code: "IAS_36_IMPAIRMENT", Standard: StandardIFRS, Reference: "IAS_36",
			Active: true, Severity: SeverityCritical, EffectiveFrom: catalogEpoch,
			Params: &ImpairmentParams{Tolerance: dec("0.01")},
		},
	}
}

// DefaultCatalog builds the compiled-in catalog. It panics only if the
// compiled-in rules are themselves invalid.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return c
}
