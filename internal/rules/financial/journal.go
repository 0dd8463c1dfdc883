package financial

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

type JournalDetail struct {
	Debits  decimal.Decimal `json:"debits"`
	Credits decimal.Decimal `json:"credits"`
	Delta   decimal.Decimal `json:"delta"`
}

func validateLines(rule, field string, lines []Line) error {
	for i, l := range lines {
		if l.Amount.IsNegative() {
			return rules.Malformed(rule, fmt.Sprintf("%s[%d].amount", field, i), "cannot be negative, got %s", l.Amount)
		}
	}
	return nil
}

func doubleEntryCheck(rule rules.Rule, p *rules.DoubleEntryParams, j JournalEntry, asOf time.Time) (rules.Result, error) {
	if err := validateLines(rule.Code, "debits", j.Debits); err != nil {
		return rules.Result{}, err
	}
	if err := validateLines(rule.Code, "credits", j.Credits); err != nil {
		return rules.Result{}, err
	}

	var drafts []rules.ViolationDraft
	if len(j.Debits) == 0 {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "NO_DEBITS", Severity: rules.SeverityCritical,
			Description: "Journal entry has no debit lines",
		})
	}
	if len(j.Credits) == 0 {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "NO_CREDITS", Severity: rules.SeverityCritical,
			Description: "Journal entry has no credit lines",
		})
	}

	detail := JournalDetail{Debits: sum(j.Debits), Credits: sum(j.Credits)}
	detail.Delta = detail.Debits.Sub(detail.Credits)
	if detail.Delta.Abs().GreaterThan(p.Tolerance) {
		drafts = append(drafts, rules.ViolationDraft{
			Code:     "UNBALANCED_ENTRY",
			Severity: rules.SeverityCritical,
			Description: fmt.Sprintf("Journal entry imbalance: debits %s, credits %s, difference %s",
				detail.Debits, detail.Credits, detail.Delta.Abs()),
			FinancialImpact: rules.Impact(detail.Delta),
			Details: map[string]string{
				"debits":  detail.Debits.String(),
				"credits": detail.Credits.String(),
				"delta":   detail.Delta.Abs().String(),
			},
		})
	}

	switch {
	case j.Date == nil || j.Date.IsZero():
		drafts = append(drafts, rules.ViolationDraft{
			Code: "MISSING_DATE", Severity: rules.SeverityHigh,
			Description: "Journal entry has no date",
		})
	case j.Date.After(asOf):
		drafts = append(drafts, rules.ViolationDraft{
			Code: "FUTURE_DATE", Severity: rules.SeverityHigh,
			Description: fmt.Sprintf("Journal entry is dated %s, after %s", j.Date.Format(time.RFC3339), asOf.Format(time.RFC3339)),
		})
	}

	if len([]rune(strings.TrimSpace(j.Description))) < p.MinDescriptionLength {
		drafts = append(drafts, rules.ViolationDraft{
			Code: "INSUFFICIENT_DESCRIPTION", Severity: rules.SeverityMedium,
			Description: fmt.Sprintf("Description must be at least %d characters", p.MinDescriptionLength),
		})
	}
	return rules.Finish(rule, drafts, detail), nil
}
