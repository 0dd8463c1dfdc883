// Package models holds the compliance check log and violation records, both
// of which are stored only as ledger payloads.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerguard/internal/rules"
	id "ledgerguard/pkg/domain"
)

type CheckType string

const (
	CheckTypeLabor         CheckType = "LABOR_LAW"
	CheckTypeFinancialGAAP CheckType = "FINANCIAL_GAAP"
	CheckTypeFinancialIFRS CheckType = "FINANCIAL_IFRS"
)

// Outcome separates "no violations found" from "check could not complete".
type Outcome string

const (
	OutcomePassed          Outcome = "PASSED"
	OutcomeFailed          Outcome = "FAILED"
	OutcomeEvaluationError Outcome = "EVALUATION_ERROR"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Ledger actions and resource types written by the compliance service.
const (
	ActionCheckPerformed    = "COMPLIANCE_CHECK_PERFORMED"
	ActionCheckErrored      = "COMPLIANCE_CHECK_ERRORED"
	ActionViolationDetected = "COMPLIANCE_VIOLATION_DETECTED"
	ActionViolationResolved = "COMPLIANCE_VIOLATION_RESOLVED"

	ResourceCheck     = "compliance_check"
	ResourceViolation = "compliance_violation"
)

// EvaluationFailure records why a check could not complete.
type EvaluationFailure struct {
	Rule    string `json:"rule"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// CheckLog is written once per orchestrator call and never changes.
type CheckLog struct {
	ID             id.CheckID         `json:"id"`
	CheckType      CheckType          `json:"check_type"`
	ResourceType   string             `json:"resource_type"`
	ResourceID     string             `json:"resource_id"`
	Outcome        Outcome            `json:"outcome"`
	ViolationIDs   []id.ViolationID   `json:"violation_ids"`
	RulesEvaluated []string           `json:"rules_evaluated"`
	Failure        *EvaluationFailure `json:"failure,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
	CheckedAt      time.Time          `json:"checked_at"`
	CheckedBy      id.ActorID         `json:"checked_by"`
}

// Violation is the projected state of a detection entry plus its optional
// resolution entry.
type Violation struct {
	ID              id.ViolationID    `json:"id"`
	CheckID         id.CheckID        `json:"check_id"`
	Category        rules.Category    `json:"category"`
	Standard        rules.Standard    `json:"standard"`
	RuleCode        string            `json:"rule_code"`
	Code            string            `json:"code"`
	Reference       string            `json:"reference"`
	Severity        rules.Severity    `json:"severity"`
	ResourceType    string            `json:"resource_type"`
	ResourceID      string            `json:"resource_id"`
	Description     string            `json:"description"`
	FinancialImpact *decimal.Decimal  `json:"financial_impact,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	DetectedAt      time.Time         `json:"detected_at"`
	DetectedBy      id.ActorID        `json:"detected_by"`

	Status          Status      `json:"status"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
	ResolvedBy      *id.ActorID `json:"resolved_by,omitempty"`
	ResolutionNotes *string     `json:"resolution_notes,omitempty"`
}

var escalationWindows = map[rules.Severity]time.Duration{
	rules.SeverityCritical: 24 * time.Hour,
	rules.SeverityHigh:     3 * 24 * time.Hour,
	rules.SeverityMedium:   7 * 24 * time.Hour,
	rules.SeverityLow:      14 * 24 * time.Hour,
}

// EscalationWindow is the longest a violation of sev may stay open. Unknown
// severities get the LOW window.
func EscalationWindow(sev rules.Severity) time.Duration {
	if w, ok := escalationWindows[sev]; ok {
		return w
	}
	return escalationWindows[rules.SeverityLow]
}

// EscalationDueAt is derived, never stored.
func (v Violation) EscalationDueAt() time.Time {
	return v.DetectedAt.Add(EscalationWindow(v.Severity))
}

// IsOverdue reports now - detected_at > window. It does not consider status;
// callers that only care about open violations check that separately.
func (v Violation) IsOverdue(now time.Time) bool {
	return now.Sub(v.DetectedAt) > EscalationWindow(v.Severity)
}

func (v Violation) IsOpen() bool { return v.Status == StatusOpen }

// CheckResult is returned by the check operations.
type CheckResult struct {
	Check      CheckLog    `json:"check"`
	Compliant  bool        `json:"compliant"`
	Violations []Violation `json:"violations"`
	Detail     any         `json:"detail,omitempty"`
}

// Filter narrows ListViolations. Zero values mean no constraint.
type Filter struct {
	Category     rules.Category
	Standard     rules.Standard
	Severity     rules.Severity
	ResourceType string
	ResourceID   string
	Status       Status
	OverdueOnly  bool
}

// Matches reports whether v passes the filter at now.
func (f Filter) Matches(v Violation, now time.Time) bool {
	switch {
	case f.Category != "" && v.Category != f.Category:
		return false
	case f.Standard != "" && v.Standard != f.Standard:
		return false
	case f.Severity != "" && v.Severity != f.Severity:
		return false
	case f.ResourceType != "" && v.ResourceType != f.ResourceType:
		return false
	case f.ResourceID != "" && v.ResourceID != f.ResourceID:
		return false
	case f.Status != "" && v.Status != f.Status:
		return false
	case f.OverdueOnly && (!v.IsOpen() || !v.IsOverdue(now)):
		return false
	}
	return true
}

// Escalation is an open violation past its window.
type Escalation struct {
	Violation Violation     `json:"violation"`
	Age       time.Duration `json:"age"`
	Window    time.Duration `json:"window"`
	OverdueBy time.Duration `json:"overdue_by"`
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Analytics summarizes violations detected in a window.
type Analytics struct {
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	Total               int            `json:"total"`
	Resolved            int            `json:"resolved"`
	Unresolved          int            `json:"unresolved"`
	Overdue             int            `json:"overdue"`
	MeanResolutionHours *float64       `json:"mean_resolution_hours,omitempty"`
	ByCategory          map[string]int `json:"by_category"`
	BySeverity          map[string]int `json:"by_severity"`
	ByStandard          map[string]int `json:"by_standard"`
	TopResources        []Count        `json:"top_resources"`
	DailyTrend          []DailyCount   `json:"daily_trend"`
}
