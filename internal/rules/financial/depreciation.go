package financial

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

type DepreciationDetail struct {
	DepreciableBase decimal.Decimal  `json:"depreciable_base"`
	BookValue       decimal.Decimal  `json:"book_value"`
	AnnualExpense   *decimal.Decimal `json:"annual_expense,omitempty"`
}

// AnnualDepreciation returns the current year's expense. Declining balance
// uses double the straight-line rate on book value and never takes the book
// value below salvage. ok is false for methods it does not know.
func AnnualDepreciation(a DepreciableAsset) (expense decimal.Decimal, ok bool) {
	life := decimal.NewFromInt(int64(a.UsefulLifeYears))
	switch a.Method {
	case rules.MethodStraightLine:
		return a.Cost.Sub(a.SalvageValue).Div(life), true
	case rules.MethodDecliningBalance:
		book := a.Cost.Sub(a.AccumulatedDepreciation)
		expense = book.Mul(decimal.NewFromInt(2)).Div(life)
		if book.Sub(expense).LessThan(a.SalvageValue) {
			expense = decimal.Max(book.Sub(a.SalvageValue), zero)
		}
		return expense, true
	default:
		return zero, false
	}
}

func depreciationCheck(rule rules.Rule, p *rules.DepreciationParams, a DepreciableAsset) (rules.Result, error) {
	if a.AccumulatedDepreciation.IsNegative() {
		return rules.Result{}, rules.Malformed(rule.Code, "accumulated_depreciation", "cannot be negative")
	}

	var drafts []rules.ViolationDraft
	if !a.Cost.IsPositive() {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "INVALID_COST", Severity: rules.SeverityCritical,
			Description: "Asset cost must be positive",
		})
		return rules.Finish(rule, drafts, nil), nil
	}
	if a.UsefulLifeYears <= 0 {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "INVALID_USEFUL_LIFE", Severity: rules.SeverityCritical,
			Description: "Useful life must be positive",
		})
		return rules.Finish(rule, drafts, nil), nil
	}

	if a.SalvageValue.IsNegative() {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "NEGATIVE_SALVAGE_VALUE", Severity: rules.SeverityMedium,
			Description: "Salvage value is negative",
		})
	}
	if a.SalvageValue.GreaterThan(a.Cost) {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "SALVAGE_EXCEEDS_COST", Severity: rules.SeverityHigh,
			Description: fmt.Sprintf("Salvage value %s exceeds cost %s", a.SalvageValue, a.Cost),
		})
	}

	detail := DepreciationDetail{
		DepreciableBase: a.Cost.Sub(a.SalvageValue),
		BookValue:       a.Cost.Sub(a.AccumulatedDepreciation),
	}
	if p.Supports(a.Method) {
		if expense, ok := AnnualDepreciation(a); ok {
			detail.AnnualExpense = rules.Impact(expense)
		}
	}
	if detail.AnnualExpense == nil {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "UNSUPPORTED_METHOD", Severity: rules.SeverityHigh,
			Description: fmt.Sprintf("Depreciation method %q is not supported", a.Method),
		})
	}

	if excess := a.AccumulatedDepreciation.Sub(detail.DepreciableBase); excess.IsPositive() {
		drafts = append(drafts, rules.ViolationDraft{
			Code:     "OVER_DEPRECIATION",
			Severity: rules.SeverityCritical,
			Description: fmt.Sprintf("Accumulated depreciation %s exceeds the depreciable base %s",
				a.AccumulatedDepreciation, detail.DepreciableBase),
			FinancialImpact: rules.Impact(excess),
		})
	}

	if detail.AnnualExpense != nil && a.RecordedAnnualExpense != nil {
		diff := a.RecordedAnnualExpense.Sub(*detail.AnnualExpense)
		if diff.Abs().GreaterThan(p.Tolerance) {
			drafts = append(drafts, rules.ViolationDraft{
				Code:     "DEPRECIATION_MISSTATED",
				Severity: rules.SeverityHigh,
				Description: fmt.Sprintf("Recorded expense %s differs from computed %s",
					a.RecordedAnnualExpense, detail.AnnualExpense),
				FinancialImpact: rules.Impact(diff),
				Details: map[string]string{
					"recorded": a.RecordedAnnualExpense.StringFixed(2),
					"computed": detail.AnnualExpense.StringFixed(2),
				},
			})
		}
	}
	return rules.Finish(rule, drafts, detail), nil
}
