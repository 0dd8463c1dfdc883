// Package financial evaluates accounting records against GAAP and IFRS
// rules: the balance sheet equation, double entry, revenue recognition,
// depreciation and impairment.
package financial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
)

// Kind tags the concrete Record type.
type Kind string

const (
	KindBalanceSheet     Kind = "balance_sheet"
	KindJournalEntry     Kind = "journal_entry"
	KindRevenueContract  Kind = "revenue_contract"
	KindDepreciableAsset Kind = "depreciable_asset"
	KindImpairmentTest   Kind = "impairment_test"
)

// Record is one accounting record submitted for a check.
type Record interface {
	Kind() Kind
	// Reference identifies the record in violations and check logs.
	Reference() string
}

type BalanceSheet struct {
	Ref         string          `json:"ref"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}

func (BalanceSheet) Kind() Kind          { return KindBalanceSheet }
func (b BalanceSheet) Reference() string { return b.Ref }

type Line struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type JournalEntry struct {
	Ref         string     `json:"ref"`
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description"`
	Debits      []Line     `json:"debits"`
	Credits     []Line     `json:"credits"`
}

func (JournalEntry) Kind() Kind          { return KindJournalEntry }
func (j JournalEntry) Reference() string { return j.Ref }

const (
	SatisfiedPointInTime = "point_in_time"
	SatisfiedOverTime    = "over_time"
)

type Obligation struct {
	ID             string          `json:"id"`
	AllocatedPrice decimal.Decimal `json:"allocated_price"`
	// Method is point_in_time (the default) or over_time.
	Method      string           `json:"method,omitempty"`
	Satisfied   bool             `json:"satisfied"`
	SatisfiedAt *time.Time       `json:"satisfied_at,omitempty"`
	Progress    *decimal.Decimal `json:"progress_percent,omitempty"`
}

type VariableConsideration struct {
	Amount            decimal.Decimal `json:"amount"`
	ConstraintApplied bool            `json:"constraint_applied"`
}

type RevenueContract struct {
	ContractID             string                 `json:"contract_id"`
	CustomerID             string                 `json:"customer_id"`
	HasCommercialSubstance *bool                  `json:"has_commercial_substance,omitempty"`
	CollectionProbable     *bool                  `json:"collection_probable,omitempty"`
	TransactionPrice       decimal.Decimal        `json:"transaction_price"`
	Variable               *VariableConsideration `json:"variable_consideration,omitempty"`
	Obligations            []Obligation           `json:"obligations"`
	RecognizedRevenue      decimal.Decimal        `json:"recognized_revenue"`
}

func (RevenueContract) Kind() Kind          { return KindRevenueContract }
func (r RevenueContract) Reference() string { return r.ContractID }

type DepreciableAsset struct {
	AssetID                 string           `json:"asset_id"`
	Cost                    decimal.Decimal  `json:"cost"`
	SalvageValue            decimal.Decimal  `json:"salvage_value"`
	UsefulLifeYears         int              `json:"useful_life_years"`
	Method                  string           `json:"method"`
	AccumulatedDepreciation decimal.Decimal  `json:"accumulated_depreciation"`
	RecordedAnnualExpense   *decimal.Decimal `json:"recorded_annual_expense,omitempty"`
}

func (DepreciableAsset) Kind() Kind          { return KindDepreciableAsset }
func (a DepreciableAsset) Reference() string { return a.AssetID }

type ImpairmentTest struct {
	AssetID                  string           `json:"asset_id"`
	CarryingAmount           decimal.Decimal  `json:"carrying_amount"`
	FairValueLessCostsToSell *decimal.Decimal `json:"fair_value_less_costs_to_sell,omitempty"`
	ValueInUse               *decimal.Decimal `json:"value_in_use,omitempty"`
	RecognizedImpairment     decimal.Decimal  `json:"recognized_impairment"`
}

func (ImpairmentTest) Kind() Kind          { return KindImpairmentTest }
func (i ImpairmentTest) Reference() string { return i.AssetID }

// DecodeRecord decodes raw as the record type named by kind. Unknown fields
// are rejected.
func DecodeRecord(kind Kind, raw []byte) (Record, error) {
	var rec Record
	switch kind {
	case KindBalanceSheet:
		rec = &BalanceSheet{}
	case KindJournalEntry:
		rec = &JournalEntry{}
	case KindRevenueContract:
		rec = &RevenueContract{}
	case KindDepreciableAsset:
		rec = &DepreciableAsset{}
	case KindImpairmentTest:
		rec = &ImpairmentTest{}
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(rec), nil
}

func deref(rec Record) Record {
	switch r := rec.(type) {
	case *BalanceSheet:
		return *r
	case *JournalEntry:
		return *r
	case *RevenueContract:
		return *r
	case *DepreciableAsset:
		return *r
	case *ImpairmentTest:
		return *r
	}
	return rec
}

// familyKind maps each financial rule family to the record kind it judges.
var familyKind = map[rules.Family]Kind{
	rules.FamilyBalanceSheet: KindBalanceSheet,
	rules.FamilyDoubleEntry:  KindJournalEntry,
	rules.FamilyRevenue:      KindRevenueContract,
	rules.FamilyDepreciation: KindDepreciableAsset,
	rules.FamilyImpairment:   KindImpairmentTest,
}

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

func sum(lines []Line) decimal.Decimal {
	total := zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
