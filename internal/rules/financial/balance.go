package financial

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

// BalanceDetail reports the figures behind a balance sheet check.
type BalanceDetail struct {
	Assets                decimal.Decimal `json:"assets"`
	LiabilitiesPlusEquity decimal.Decimal `json:"liabilities_plus_equity"`
	Delta                 decimal.Decimal `json:"delta"`
}

func balanceSheetCheck(rule rules.Rule, p *rules.BalanceSheetParams, b BalanceSheet) (rules.Result, error) {
	rhs := b.Liabilities.Add(b.Equity)
	detail := BalanceDetail{Assets: b.Assets, LiabilitiesPlusEquity: rhs, Delta: b.Assets.Sub(rhs)}
	if detail.Delta.Abs().LessThanOrEqual(p.Tolerance) {
		return rules.Finish(rule, nil, detail), nil
	}
	return rules.Finish(rule, []rules.ViolationDraft{{
		Code:     "BALANCE_SHEET_IMBALANCE",
		Severity: rules.SeverityCritical,
		Description: fmt.Sprintf("Assets (%s) do not equal liabilities (%s) plus equity (%s); difference %s",
			b.Assets, b.Liabilities, b.Equity, detail.Delta),
		FinancialImpact: rules.Impact(detail.Delta),
		Details:         map[string]string{"delta": detail.Delta.String()},
	}}, detail), nil
}
