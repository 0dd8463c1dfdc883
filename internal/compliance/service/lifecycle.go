package service

import (
	"context"
	"math"
	"sort"
	"time"

	"ledgerguard/internal/compliance/models"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
)

const (
	similarWindow   = 30 * 24 * time.Hour
	topResourceSize = 10
)

// Escalations lists open violations past their escalation window at now,
// most severe and most overdue first.
func (s *Service) Escalations(ctx context.Context, now time.Time) ([]models.Escalation, error) {
	all, err := s.loadViolations(ctx, "")
	if err != nil {
		return nil, domainError(err, "failed to load violations")
	}
	var out []models.Escalation
	for _, v := range all {
		if !v.IsOpen() || !v.IsOverdue(now) {
			continue
		}
		window := models.EscalationWindow(v.Severity)
		age := now.Sub(v.DetectedAt)
		out = append(out, models.Escalation{Violation: v, Age: age, Window: window, OverdueBy: age - window})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Violation.Severity.Rank(), out[j].Violation.Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].OverdueBy > out[j].OverdueBy
	})
	return out, nil
}

// Analytics summarizes violations detected in [from, to).
func (s *Service) Analytics(ctx context.Context, from, to time.Time) (*models.Analytics, error) {
	if !to.After(from) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "analytics window must end after it starts")
	}
	all, err := s.loadViolations(ctx, "")
	if err != nil {
		return nil, domainError(err, "failed to load violations")
	}

	now := s.clock.Now()
	a := &models.Analytics{
		From:       from,
		To:         to,
		ByCategory: map[string]int{},
		BySeverity: map[string]int{},
		ByStandard: map[string]int{},
	}
	resources := map[string]int{}
	daily := map[string]int{}
	var resolutionHours float64
	for _, v := range all {
		if v.DetectedAt.Before(from) || !v.DetectedAt.Before(to) {
			continue
		}
		a.Total++
		if v.IsOpen() {
			a.Unresolved++
			if v.IsOverdue(now) {
				a.Overdue++
			}
		} else {
			a.Resolved++
			if v.ResolvedAt != nil {
				resolutionHours += v.ResolvedAt.Sub(v.DetectedAt).Hours()
			}
		}
		a.ByCategory[string(v.Category)]++
		a.BySeverity[string(v.Severity)]++
		a.ByStandard[string(v.Standard)]++
		resources[v.ResourceType+":"+v.ResourceID]++
		daily[v.DetectedAt.UTC().Format("2006-01-02")]++
	}
	if a.Resolved > 0 {
		mean := math.Round(resolutionHours/float64(a.Resolved)*100) / 100
		a.MeanResolutionHours = &mean
	}
	a.TopResources = topCounts(resources, topResourceSize)
	a.DailyTrend = make([]models.DailyCount, 0, len(daily))
	for day, n := range daily {
		a.DailyTrend = append(a.DailyTrend, models.DailyCount{Date: day, Count: n})
	}
	sort.Slice(a.DailyTrend, func(i, j int) bool { return a.DailyTrend[i].Date < a.DailyTrend[j].Date })
	return a, nil
}

func topCounts(counts map[string]int, limit int) []models.Count {
	out := make([]models.Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SimilarViolations returns other violations on the same resource under the
// same standard detected within 30 days of the given one.
func (s *Service) SimilarViolations(ctx context.Context, violationID id.ViolationID) ([]models.Violation, error) {
	all, err := s.loadViolations(ctx, "")
	if err != nil {
		return nil, domainError(err, "failed to load violations")
	}
	var target *models.Violation
	for i := range all {
		if all[i].ID == violationID {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "violation not found")
	}

	var out []models.Violation
	for _, v := range all {
		if v.ID == target.ID || v.Standard != target.Standard ||
			v.ResourceType != target.ResourceType || v.ResourceID != target.ResourceID {
			continue
		}
		gap := v.DetectedAt.Sub(target.DetectedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= similarWindow {
			out = append(out, v)
		}
	}
	return out, nil
}
