package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerguard/internal/ledger"
)

func baseEntry() ledger.Entry {
	return ledger.Entry{
		Sequence:     3,
		ActorID:      "auditor-1",
		Action:       "COMPLIANCE_VIOLATION_DETECTED",
		ResourceType: "compliance_violation",
		ResourceID:   "v-1",
		After:        json.RawMessage(`{"severity":"CRITICAL","financial_impact":"5000.00","standard":"GAAP_FUNDAMENTAL_EQUATION"}`),
		Timestamp:    epoch,
		PrevDigest:   ledger.GenesisDigest,
	}
}

func TestCanonical_PayloadKeyOrderDoesNotMatter(t *testing.T) {
	a := baseEntry()
	b := baseEntry()
	b.After = json.RawMessage(`{
		"standard": "GAAP_FUNDAMENTAL_EQUATION",
		"financial_impact": "5000.00",
		"severity": "CRITICAL"
	}`)

	da, err := ledger.ComputeDigest(a)
	require.NoError(t, err)
	db, err := ledger.ComputeDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestCanonical_IsStable(t *testing.T) {
	c, err := ledger.Canonical(baseEntry())
	require.NoError(t, err)

	// The hashed form is a compatibility contract; a change here breaks
	// verification of every chain written before it.
	want := `{"action":"COMPLIANCE_VIOLATION_DETECTED","actor_id":"auditor-1","after":{"financial_impact":"5000.00","severity":"CRITICAL","standard":"GAAP_FUNDAMENTAL_EQUATION"},` +
		`"before":null,"changes":null,"prev_digest":"` + string(ledger.GenesisDigest) + `","resource_id":"v-1","resource_type":"compliance_violation",` +
		`"schema":"ledgerguard/v1","sequence":3,"timestamp":"2026-03-02T09:00:00Z"}`
	assert.Equal(t, want, string(c))
}

func TestCanonical_NumbersAreKeptVerbatim(t *testing.T) {
	a := baseEntry()
	a.After = json.RawMessage(`{"amount":1.50}`)
	b := baseEntry()
	b.After = json.RawMessage(`{"amount":1.5}`)

	ca, err := ledger.Canonical(a)
	require.NoError(t, err)
	cb, err := ledger.Canonical(b)
	require.NoError(t, err)
	assert.NotEqual(t, string(ca), string(cb))
	assert.Contains(t, string(ca), `"amount":1.50`)
}

func TestCanonical_EmptyAndNullPayloadsAreEquivalent(t *testing.T) {
	a := baseEntry()
	a.Before = nil
	b := baseEntry()
	b.Before = json.RawMessage(`null`)

	da, err := ledger.ComputeDigest(a)
	require.NoError(t, err)
	db, err := ledger.ComputeDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestComputeDigest_Deterministic(t *testing.T) {
	first, err := ledger.ComputeDigest(baseEntry())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ledger.ComputeDigest(baseEntry())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeDigest_DependsOnPredecessor(t *testing.T) {
	a := baseEntry()
	b := baseEntry()
	b.PrevDigest = "1" + ledger.GenesisDigest[1:]

	da, err := ledger.ComputeDigest(a)
	require.NoError(t, err)
	db, err := ledger.ComputeDigest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestCanonical_RejectsTrailingData(t *testing.T) {
	e := baseEntry()
	e.After = json.RawMessage(`{"a":1}{"b":2}`)
	_, err := ledger.Canonical(e)
	assert.Error(t, err)
}
