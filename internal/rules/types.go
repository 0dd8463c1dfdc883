// Package rules defines the rule catalog, the typed parameter set of every
// rule family and the result shapes shared by the labor and financial
// evaluators. Evaluators are pure: no I/O, no clock, no ledger.
package rules

import (
	"github.com/shopspring/decimal"

	dErrors "ledgerguard/pkg/domain-errors"
)

// Severity orders violations by urgency.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid severity: "+s)
	}
	return sev, nil
}

func (s Severity) IsValid() bool { return severityRank[s] > 0 }

// Rank returns 4 for CRITICAL down to 1 for LOW, 0 when unknown.
func (s Severity) Rank() int { return severityRank[s] }

// Category is the violation type.
type Category string

const (
	CategoryLabor     Category = "LABOR_LAW"
	CategoryFinancial Category = "FINANCIAL"
)

// Standard is the jurisdiction or accounting framework a rule belongs to.
type Standard string

const (
	StandardCA   Standard = "CA"
	StandardFLSA Standard = "FLSA"
	StandardGAAP Standard = "GAAP"
	StandardIFRS Standard = "IFRS"
)

func (s Standard) Category() Category {
	switch s {
	case StandardGAAP, StandardIFRS:
		return CategoryFinancial
	default:
		return CategoryLabor
	}
}

// ViolationDraft is a finding before the orchestrator gives it an identity.
type ViolationDraft struct {
	RuleCode string `json:"rule_code"`
	// Code names the specific breach, e.g. MEAL_BREAK_NOT_TAKEN.
	Code string `json:"code"`
	// Reference is the statute or standard paragraph; defaults to the rule's.
	Reference       string            `json:"reference"`
	Severity        Severity          `json:"severity"`
	Description     string            `json:"description"`
	FinancialImpact *decimal.Decimal  `json:"financial_impact,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
}

// Result is what one evaluator returns. Detail carries evaluator-specific
// computed figures (an overtime breakdown, a depreciation schedule).
type Result struct {
	Compliant  bool             `json:"compliant"`
	Violations []ViolationDraft `json:"violations"`
	Detail     any              `json:"detail,omitempty"`
}

// Check is one independent evaluation unit. Checks share no state and may
// run in parallel.
type Check struct {
	Rule     Rule
	Evaluate func() (Result, error)
}

// Finish stamps rule defaults on drafts and builds the result.
func Finish(rule Rule, drafts []ViolationDraft, detail any) Result {
	for i := range drafts {
		drafts[i].RuleCode = rule.Code
		if drafts[i].Severity == "" {
			drafts[i].Severity = rule.Severity
		}
		if drafts[i].Reference == "" {
			drafts[i].Reference = rule.Reference
		}
	}
	return Result{Compliant: len(drafts) == 0, Violations: drafts, Detail: detail}
}

// Impact returns a pointer to d rounded to cents.
func Impact(d decimal.Decimal) *decimal.Decimal {
	r := d.Abs().Round(2)
	return &r
}

// Merge combines per-check results in check order. Detail becomes a map
// from rule code to that rule's detail, omitting rules without one.
func Merge(checks []Check, results []Result) Result {
	merged := Result{Compliant: true, Violations: []ViolationDraft{}}
	details := map[string]any{}
	for i, res := range results {
		merged.Violations = append(merged.Violations, res.Violations...)
		if !res.Compliant {
			merged.Compliant = false
		}
		if res.Detail != nil {
			details[checks[i].Rule.Code] = res.Detail
		}
	}
	if len(details) > 0 {
		merged.Detail = details
	}
	return merged
}

// RunSequential evaluates checks one after another, stopping at the first
// error.
func RunSequential(checks []Check) (Result, error) {
	results := make([]Result, len(checks))
	for i, c := range checks {
		res, err := c.Evaluate()
		if err != nil {
			return Result{}, err
		}
		results[i] = res
	}
	return Merge(checks, results), nil
}
