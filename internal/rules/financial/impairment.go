package financial

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

type ImpairmentDetail struct {
	RecoverableAmount decimal.Decimal `json:"recoverable_amount"`
	ExpectedLoss      decimal.Decimal `json:"expected_loss"`
}

// impairmentCheck applies IAS 36: recoverable amount is the higher of fair
// value less costs to sell and value in use.
func impairmentCheck(rule rules.Rule, p *rules.ImpairmentParams, t ImpairmentTest) (rules.Result, error) {
	if t.FairValueLessCostsToSell != nil && t.FairValueLessCostsToSell.IsNegative() {
		return rules.Result{}, rules.Malformed(rule.Code, "fair_value_less_costs_to_sell", "cannot be negative")
	}
	if t.ValueInUse != nil && t.ValueInUse.IsNegative() {
		return rules.Result{}, rules.Malformed(rule.Code, "value_in_use", "cannot be negative")
	}
	if t.RecognizedImpairment.IsNegative() {
		return rules.Result{}, rules.Malformed(rule.Code, "recognized_impairment", "cannot be negative")
	}

	if !t.CarryingAmount.IsPositive() {
		return rules.Finish(rule, []rules.ViolationDraft{{
			Code: "INVALID_CARRYING_AMOUNT", Severity: rules.SeverityHigh,
			Description: "Carrying amount must be positive",
		}}, nil), nil
	}
	if t.FairValueLessCostsToSell == nil && t.ValueInUse == nil {
		return rules.Finish(rule, []rules.ViolationDraft{{
			Code: "MISSING_RECOVERABLE_AMOUNT", Severity: rules.SeverityCritical,
			Description: "Neither fair value less costs to sell nor value in use was determined",
		}}, nil), nil
	}

	var detail ImpairmentDetail
	for _, v := range []*decimal.Decimal{t.FairValueLessCostsToSell, t.ValueInUse} {
		if v != nil && v.GreaterThan(detail.RecoverableAmount) {
			detail.RecoverableAmount = *v
		}
	}
	detail.ExpectedLoss = decimal.Max(t.CarryingAmount.Sub(detail.RecoverableAmount), zero)

	diff := t.RecognizedImpairment.Sub(detail.ExpectedLoss)
	if diff.Abs().LessThanOrEqual(p.Tolerance) {
		return rules.Finish(rule, nil, detail), nil
	}
	if detail.ExpectedLoss.IsPositive() {
		return rules.Finish(rule, []rules.ViolationDraft{{
			Code:     "IMPAIRMENT_NOT_RECOGNIZED",
			Severity: rules.SeverityCritical,
			Description: fmt.Sprintf("Impairment loss of %s should be recognized, %s was",
				detail.ExpectedLoss, t.RecognizedImpairment),
			FinancialImpact: rules.Impact(diff),
		}}, detail), nil
	}
	return rules.Finish(rule, []rules.ViolationDraft{{
		Code:            "INCORRECT_IMPAIRMENT",
		Severity:        rules.SeverityHigh,
		Description:     "Impairment loss recognized on an asset that is not impaired",
		FinancialImpact: rules.Impact(diff),
	}}, detail), nil
}
