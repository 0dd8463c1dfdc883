package financial

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerguard/internal/rules"
)

var asOf = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func gaap() []rules.Rule { return rules.DefaultCatalog().Active(asOf, rules.StandardGAAP) }
func ifrs() []rules.Rule { return rules.DefaultCatalog().Active(asOf, rules.StandardIFRS) }

func codes(res rules.Result) []string {
	out := make([]string, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, v.Code)
	}
	return out
}

func TestBalanceSheet(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		res, err := Evaluate(gaap(), BalanceSheet{Ref: "bs-1", Assets: d("100000"), Liabilities: d("70000"), Equity: d("30000")}, asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant)
		detail := res.Detail.(map[string]any)["GAAP_BALANCE_SHEET"].(BalanceDetail)
		assert.True(t, detail.Delta.IsZero())
	})

	t.Run("imbalance of 5000", func(t *testing.T) {
		res, err := Evaluate(gaap(), BalanceSheet{Ref: "bs-2", Assets: d("100000"), Liabilities: d("70000"), Equity: d("25000")}, asOf)
		require.NoError(t, err)
		require.Len(t, res.Violations, 1)
		v := res.Violations[0]
		assert.Equal(t, "BALANCE_SHEET_IMBALANCE", v.Code)
		assert.Equal(t, rules.SeverityCritical, v.Severity)
		assert.Equal(t, "GAAP_FUNDAMENTAL_EQUATION", v.Reference)
		assert.True(t, v.FinancialImpact.Equal(d("5000")))
	})

	t.Run("exact cents", func(t *testing.T) {
		res, err := Evaluate(ifrs(), BalanceSheet{Assets: d("100.01"), Liabilities: d("50"), Equity: d("50")}, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"BALANCE_SHEET_IMBALANCE"}, codes(res))
		assert.Equal(t, "IAS_1", res.Violations[0].Reference)
	})
}

func TestJournalEntry(t *testing.T) {
	posted := asOf.Add(-24 * time.Hour)
	entry := func() JournalEntry {
		return JournalEntry{
			Ref:         "je-1",
			Date:        &posted,
			Description: "Monthly rent accrual",
			Debits:      []Line{{Account: "rent_expense", Amount: d("5000")}},
			Credits:     []Line{{Account: "cash", Amount: d("4000")}, {Account: "accrued", Amount: d("900")}},
		}
	}

	t.Run("imbalance of 100", func(t *testing.T) {
		res, err := Evaluate(gaap(), entry(), asOf)
		require.NoError(t, err)
		require.Equal(t, []string{"UNBALANCED_ENTRY"}, codes(res))
		v := res.Violations[0]
		assert.Contains(t, v.Description, "imbalance")
		assert.True(t, v.FinancialImpact.Equal(d("100")))
		assert.Equal(t, "100", v.Details["delta"])
	})

	t.Run("balanced", func(t *testing.T) {
		je := entry()
		je.Credits[1].Amount = d("1000")
		res, err := Evaluate(gaap(), je, asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant)
	})

	t.Run("bookkeeping defects", func(t *testing.T) {
		je := JournalEntry{Description: "fix", Debits: []Line{{Account: "a", Amount: d("10")}}}
		res, err := Evaluate(ifrs(), je, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"NO_CREDITS", "UNBALANCED_ENTRY", "MISSING_DATE", "INSUFFICIENT_DESCRIPTION"}, codes(res))
		assert.Equal(t, rules.SeverityMedium, res.Violations[3].Severity)
	})

	t.Run("future date", func(t *testing.T) {
		je := entry()
		je.Credits[1].Amount = d("1000")
		future := asOf.Add(time.Hour)
		je.Date = &future
		res, err := Evaluate(gaap(), je, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"FUTURE_DATE"}, codes(res))
	})

	t.Run("negative amount is malformed", func(t *testing.T) {
		je := entry()
		je.Credits[0].Amount = d("-4000")
		_, err := Evaluate(gaap(), je, asOf)
		var evalErr *rules.EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "GAAP_DOUBLE_ENTRY", evalErr.Rule)
		assert.Equal(t, "credits[0].amount", evalErr.Field)
	})
}

func TestRevenue(t *testing.T) {
	delivered := asOf.Add(-48 * time.Hour)
	contract := func() RevenueContract {
		return RevenueContract{
			ContractID:       "c-1",
			CustomerID:       "cust-1",
			TransactionPrice: d("1200"),
			Obligations: []Obligation{
				{ID: "license", AllocatedPrice: d("800"), Satisfied: true, SatisfiedAt: &delivered},
				{ID: "support", AllocatedPrice: d("400"), Method: SatisfiedOverTime, Progress: ptr(d("25"))},
			},
			RecognizedRevenue: d("900"),
		}
	}

	t.Run("recognized matches progress", func(t *testing.T) {
		res, err := Evaluate(ifrs(), contract(), asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant)
		detail := res.Detail.(map[string]any)["IFRS_15_REVENUE"].(RevenueDetail)
		assert.True(t, detail.Recognizable.Equal(d("900")))
	})

	t.Run("premature recognition", func(t *testing.T) {
		c := contract()
		c.RecognizedRevenue = d("1200")
		res, err := Evaluate(gaap(), c, asOf)
		require.NoError(t, err)
		require.Equal(t, []string{"PREMATURE_REVENUE_RECOGNITION"}, codes(res))
		assert.True(t, res.Violations[0].FinancialImpact.Equal(d("300")))
		assert.Equal(t, "ASC_606", res.Violations[0].Reference)
	})

	t.Run("IFRS contract criteria", func(t *testing.T) {
		c := contract()
		c.CustomerID = ""
		c.HasCommercialSubstance = ptr(false)
		c.CollectionProbable = ptr(false)
		c.Variable = &VariableConsideration{Amount: d("50")}

		res, err := Evaluate(ifrs(), c, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"NO_CUSTOMER", "NO_COMMERCIAL_SUBSTANCE", "PAYMENT_NOT_PROBABLE", "VARIABLE_CONSIDERATION_CONSTRAINT"}, codes(res))

		res, err = Evaluate(gaap(), c, asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant, "ASC 606 rule does not apply IFRS criteria")
	})

	t.Run("allocation and obligations", func(t *testing.T) {
		c := contract()
		c.TransactionPrice = d("1300")
		c.Obligations[1].Progress = ptr(d("120"))
		c.RecognizedRevenue = d("800")
		res, err := Evaluate(ifrs(), c, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"INVALID_PROGRESS", "ALLOCATION_MISMATCH"}, codes(res))
	})

	t.Run("future satisfaction", func(t *testing.T) {
		c := contract()
		later := asOf.Add(24 * time.Hour)
		c.Obligations[0].SatisfiedAt = &later
		c.RecognizedRevenue = d("0")
		res, err := Evaluate(gaap(), c, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"FUTURE_SATISFACTION_DATE"}, codes(res))
	})

	t.Run("empty contract", func(t *testing.T) {
		res, err := Evaluate(gaap(), RevenueContract{}, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"NO_CONTRACT", "NO_PERFORMANCE_OBLIGATIONS", "INVALID_TRANSACTION_PRICE"}, codes(res))
	})
}

func TestDepreciation(t *testing.T) {
	asset := func() DepreciableAsset {
		return DepreciableAsset{
			AssetID: "truck-7", Cost: d("50000"), SalvageValue: d("5000"), UsefulLifeYears: 5,
			Method: rules.MethodStraightLine, AccumulatedDepreciation: d("18000"),
			RecordedAnnualExpense: ptr(d("9000")),
		}
	}

	t.Run("straight line", func(t *testing.T) {
		res, err := Evaluate(gaap(), asset(), asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant)
	})

	t.Run("declining balance", func(t *testing.T) {
		a := asset()
		a.Method = rules.MethodDecliningBalance
		a.AccumulatedDepreciation = d("20000")
		expense, ok := AnnualDepreciation(a)
		require.True(t, ok)
		assert.True(t, expense.Equal(d("12000")), "30000 book * 2/5")

		a.AccumulatedDepreciation = d("42000")
		expense, _ = AnnualDepreciation(a)
		assert.True(t, expense.Equal(d("3000")), "clamped at salvage")
	})

	t.Run("misstated expense", func(t *testing.T) {
		a := asset()
		a.RecordedAnnualExpense = ptr(d("10000"))
		res, err := Evaluate(ifrs(), a, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"DEPRECIATION_MISSTATED"}, codes(res))
		assert.True(t, res.Violations[0].FinancialImpact.Equal(d("1000")))
		assert.Equal(t, "IAS_16", res.Violations[0].Reference)
	})

	t.Run("defects", func(t *testing.T) {
		a := asset()
		a.SalvageValue = d("60000")
		a.Method = "units_of_production"
		res, err := Evaluate(gaap(), a, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"SALVAGE_EXCEEDS_COST", "UNSUPPORTED_METHOD", "OVER_DEPRECIATION"}, codes(res))
	})

	t.Run("invalid cost stops evaluation", func(t *testing.T) {
		a := asset()
		a.Cost = d("0")
		res, err := Evaluate(gaap(), a, asOf)
		require.NoError(t, err)
		assert.Equal(t, []string{"INVALID_COST"}, codes(res))
	})
}

func TestImpairment(t *testing.T) {
	test := func() ImpairmentTest {
		return ImpairmentTest{
			AssetID: "plant-2", CarryingAmount: d("1000"),
			FairValueLessCostsToSell: ptr(d("700")), ValueInUse: ptr(d("800")),
			RecognizedImpairment: d("200"),
		}
	}

	tests := []struct {
		name   string
		mutate func(*ImpairmentTest)
		want   []string
	}{
		{"loss recognized", func(*ImpairmentTest) {}, nil},
		{"loss not recognized", func(i *ImpairmentTest) { i.RecognizedImpairment = d("0") }, []string{"IMPAIRMENT_NOT_RECOGNIZED"}},
		{"not impaired", func(i *ImpairmentTest) { i.ValueInUse = ptr(d("1500")) }, []string{"INCORRECT_IMPAIRMENT"}},
		{"no recoverable amount", func(i *ImpairmentTest) {
			i.FairValueLessCostsToSell, i.ValueInUse = nil, nil
		}, []string{"MISSING_RECOVERABLE_AMOUNT"}},
		{"bad carrying amount", func(i *ImpairmentTest) { i.CarryingAmount = d("0") }, []string{"INVALID_CARRYING_AMOUNT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := test()
			tt.mutate(&i)
			res, err := Evaluate(ifrs(), i, asOf)
			require.NoError(t, err)
			if tt.want == nil {
				assert.True(t, res.Compliant)
				return
			}
			assert.Equal(t, tt.want, codes(res))
		})
	}
}

func TestPlan(t *testing.T) {
	t.Run("standard without a rule for the record", func(t *testing.T) {
		_, err := Evaluate(gaap(), ImpairmentTest{AssetID: "x"}, asOf)
		var evalErr *rules.EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "GAAP", evalErr.Rule)
		assert.Equal(t, "kind", evalErr.Field)
	})

	t.Run("pointer records are accepted", func(t *testing.T) {
		res, err := Evaluate(gaap(), &BalanceSheet{Assets: d("1"), Liabilities: d("1"), Equity: d("0")}, asOf)
		require.NoError(t, err)
		assert.True(t, res.Compliant)
	})

	t.Run("nil record", func(t *testing.T) {
		_, err := Evaluate(gaap(), nil, asOf)
		assert.ErrorIs(t, err, rules.ErrMalformedInput)
	})
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(KindJournalEntry, []byte(`{
		"ref": "je-9",
		"date": "2025-06-01T00:00:00Z",
		"description": "Office supplies",
		"debits": [{"account": "supplies", "amount": "5000"}],
		"credits": [{"account": "cash", "amount": 5000}]
	}`))
	require.NoError(t, err)
	je, ok := rec.(JournalEntry)
	require.True(t, ok)
	assert.Equal(t, "je-9", je.Reference())
	assert.True(t, je.Credits[0].Amount.Equal(d("5000")))

	_, err = DecodeRecord(KindBalanceSheet, []byte(`{"assets": "1", "surplus": "2"}`))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = DecodeRecord("ledger", []byte(`{}`))
	assert.Error(t, err)
}
