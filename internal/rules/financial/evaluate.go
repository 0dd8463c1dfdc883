package financial

import (
	"fmt"
	"time"

	"ledgerguard/internal/rules"
)

// Plan returns one check per active rule that judges rec's kind, in rule
// order. asOf is the reference instant for future-dating checks.
func Plan(active []rules.Rule, rec Record, asOf time.Time) ([]rules.Check, error) {
	if rec == nil {
		return nil, rules.Malformed(planScope(active), "record", "is required")
	}
	rec = deref(rec)

	var checks []rules.Check
	for _, r := range active {
		kind, ok := familyKind[r.Family()]
		if !ok {
			return nil, fmt.Errorf("rule %s: family %s is not a financial rule", r.Code, r.Family())
		}
		if kind != rec.Kind() {
			continue
		}
		checks = append(checks, rules.Check{Rule: r, Evaluate: bind(r, rec, asOf)})
	}
	if len(checks) == 0 {
		return nil, rules.Malformed(planScope(active), "kind", "no active rule judges %s records", rec.Kind())
	}
	return checks, nil
}

func bind(r rules.Rule, rec Record, asOf time.Time) func() (rules.Result, error) {
	return func() (rules.Result, error) {
		switch p := r.Params.(type) {
		case *rules.BalanceSheetParams:
			return balanceSheetCheck(r, p, rec.(BalanceSheet))
		case *rules.DoubleEntryParams:
			return doubleEntryCheck(r, p, rec.(JournalEntry), asOf)
		case *rules.RevenueParams:
			return revenueCheck(r, p, rec.(RevenueContract), asOf)
		case *rules.DepreciationParams:
			return depreciationCheck(r, p, rec.(DepreciableAsset))
		case *rules.ImpairmentParams:
			return impairmentCheck(r, p, rec.(ImpairmentTest))
		default:
			return rules.Result{}, fmt.Errorf("rule %s: unexpected params %T", r.Code, r.Params)
		}
	}
}

// planScope names the standard in errors raised before any rule is chosen.
func planScope(active []rules.Rule) string {
	if len(active) == 0 {
		return "financial"
	}
	return string(active[0].Standard)
}

// Evaluate runs the applicable checks sequentially.
func Evaluate(active []rules.Rule, rec Record, asOf time.Time) (rules.Result, error) {
	checks, err := Plan(active, rec, asOf)
	if err != nil {
		return rules.Result{}, err
	}
	return rules.RunSequential(checks)
}
