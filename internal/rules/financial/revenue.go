package financial

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

type RevenueDetail struct {
	Allocated    decimal.Decimal `json:"allocated"`
	Recognizable decimal.Decimal `json:"recognizable"`
	Recognized   decimal.Decimal `json:"recognized"`
}

// revenueCheck walks the five-step model. IFRS rules add the contract
// criteria checks of IFRS 15 paragraph 9.
func revenueCheck(rule rules.Rule, p *rules.RevenueParams, c RevenueContract, asOf time.Time) (rules.Result, error) {
	for i, o := range c.Obligations {
		if o.AllocatedPrice.IsNegative() {
			return rules.Result{}, rules.Malformed(rule.Code, fmt.Sprintf("obligations[%d].allocated_price", i), "cannot be negative")
		}
	}
	if c.RecognizedRevenue.IsNegative() {
		return rules.Result{}, rules.Malformed(rule.Code, "recognized_revenue", "cannot be negative")
	}

	var drafts []rules.ViolationDraft
	add := func(code string, sev rules.Severity, desc string) {
		drafts = append(drafts, rules.ViolationDraft{Code: code, Severity: sev, Description: desc})
	}

	// Step 1: the contract.
	if c.ContractID == "" {
		add("NO_CONTRACT", rules.SeverityCritical, "Revenue is not tied to an identified contract")
	}
	if p.IFRS {
		if c.CustomerID == "" {
			add("NO_CUSTOMER", rules.SeverityCritical, "Contract does not identify the customer")
		}
		if c.HasCommercialSubstance != nil && !*c.HasCommercialSubstance {
			add("NO_COMMERCIAL_SUBSTANCE", rules.SeverityCritical, "Contract lacks commercial substance")
		}
		if c.CollectionProbable != nil && !*c.CollectionProbable {
			add("PAYMENT_NOT_PROBABLE", rules.SeverityHigh, "Collection of consideration is not probable")
		}
	}

	// Step 2: performance obligations.
	if len(c.Obligations) == 0 {
		add("NO_PERFORMANCE_OBLIGATIONS", rules.SeverityCritical, "No distinct performance obligations identified")
	}

	// Step 3: transaction price.
	if !c.TransactionPrice.IsPositive() {
		add("INVALID_TRANSACTION_PRICE", rules.SeverityCritical, "Transaction price must be positive")
	}
	if p.IFRS && c.Variable != nil && !c.Variable.ConstraintApplied {
		add("VARIABLE_CONSIDERATION_CONSTRAINT", rules.SeverityHigh, "Variable consideration is not constrained")
	}

	// Steps 4 and 5: allocation and recognition.
	detail := RevenueDetail{Recognized: c.RecognizedRevenue}
	for _, o := range c.Obligations {
		detail.Allocated = detail.Allocated.Add(o.AllocatedPrice)
		switch o.Method {
		case "", SatisfiedPointInTime:
			if !o.Satisfied {
				continue
			}
			if o.SatisfiedAt != nil && o.SatisfiedAt.After(asOf) {
				add("FUTURE_SATISFACTION_DATE", rules.SeverityHigh,
					fmt.Sprintf("Obligation %s is marked satisfied on a future date", o.ID))
				continue
			}
			detail.Recognizable = detail.Recognizable.Add(o.AllocatedPrice)
		case SatisfiedOverTime:
			progress := zero
			if o.Progress != nil {
				progress = *o.Progress
			} else if o.Satisfied {
				progress = hundred
			}
			if progress.IsNegative() || progress.GreaterThan(hundred) {
				add("INVALID_PROGRESS", rules.SeverityHigh,
					fmt.Sprintf("Obligation %s progress %s is outside 0-100", o.ID, progress))
				continue
			}
			detail.Recognizable = detail.Recognizable.Add(o.AllocatedPrice.Mul(progress).Div(hundred))
		default:
			add("INVALID_SATISFACTION_METHOD", rules.SeverityHigh,
				fmt.Sprintf("Obligation %s has unknown satisfaction method %q", o.ID, o.Method))
		}
	}

	if c.TransactionPrice.IsPositive() && len(c.Obligations) > 0 &&
		detail.Allocated.Sub(c.TransactionPrice).Abs().GreaterThan(p.AllocationTolerance) {
		drafts = append(drafts, rules.ViolationDraft{
			Code:     "ALLOCATION_MISMATCH",
			Severity: rules.SeverityHigh,
			Description: fmt.Sprintf("Allocated %s does not match transaction price %s",
				detail.Allocated, c.TransactionPrice),
			FinancialImpact: rules.Impact(detail.Allocated.Sub(c.TransactionPrice)),
		})
	}

	if excess := c.RecognizedRevenue.Sub(detail.Recognizable); excess.GreaterThan(p.AllocationTolerance) {
		drafts = append(drafts, rules.ViolationDraft{
			Code:     "PREMATURE_REVENUE_RECOGNITION",
			Severity: rules.SeverityCritical,
			Description: fmt.Sprintf("Recognized revenue %s exceeds recognizable revenue %s",
				c.RecognizedRevenue, detail.Recognizable.Round(2)),
			FinancialImpact: rules.Impact(excess),
			Details:         map[string]string{"excess": excess.StringFixed(2)},
		})
	}
	return rules.Finish(rule, drafts, detail), nil
}
