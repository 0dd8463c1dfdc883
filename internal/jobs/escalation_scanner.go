package jobs

import (
	"context"
	"log/slog"
	"time"

	"ledgerguard/internal/compliance/metrics"
	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/rules"
	"ledgerguard/pkg/platform/clock"
)

// EscalationSource lists overdue open violations.
type EscalationSource interface {
	Escalations(ctx context.Context, now time.Time) ([]models.Escalation, error)
}

// EscalationScanner periodically surfaces violations past their escalation
// window: it refreshes the overdue gauge and logs each one at WARN so
// alerting can pick them up.
type EscalationScanner struct {
	source   EscalationSource
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewEscalationScanner(source EscalationSource, clk clock.Clock, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *EscalationScanner {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &EscalationScanner{source: source, clock: clk, interval: interval, logger: logger, metrics: m}
}

func (s *EscalationScanner) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "escalation scanner started", "interval", s.interval)
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "escalation scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "escalation scanner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce scans once and returns the overdue violations found.
func (s *EscalationScanner) RunOnce(ctx context.Context) ([]models.Escalation, error) {
	escalations, err := s.source.Escalations(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	bySeverity := map[string]int{}
	for _, sev := range []rules.Severity{rules.SeverityCritical, rules.SeverityHigh, rules.SeverityMedium, rules.SeverityLow} {
		bySeverity[string(sev)] = 0
	}
	for _, e := range escalations {
		v := e.Violation
		bySeverity[string(v.Severity)]++
		s.logger.WarnContext(ctx, "violation overdue for escalation",
			"violation_id", v.ID,
			"rule", v.RuleCode,
			"code", v.Code,
			"severity", v.Severity,
			"resource_id", v.ResourceID,
			"overdue_by", e.OverdueBy.String(),
		)
	}
	s.metrics.SetOverdue(bySeverity)
	return escalations, nil
}
