package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/rules"
	"ledgerguard/internal/rules/financial"
	"ledgerguard/internal/rules/labor"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
)

const resourceEmployee = "employee"

// checkRequest is what both check entry points reduce to.
type checkRequest struct {
	actor        id.ActorID
	checkType    models.CheckType
	resourceType string
	resourceID   string
	rules        []rules.Rule
	plan         func([]rules.Rule) ([]rules.Check, error)
}

// CheckLabor evaluates a timesheet against the rules of its jurisdiction and
// the federal rules.
func (s *Service) CheckLabor(ctx context.Context, actor id.ActorID, ts labor.Timesheet) (*models.CheckResult, error) {
	if ts.EmployeeRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "employee_ref is required")
	}
	now := s.clock.Now()
	return s.check(ctx, now, checkRequest{
		actor:        actor,
		checkType:    models.CheckTypeLabor,
		resourceType: resourceEmployee,
		resourceID:   ts.EmployeeRef,
		rules:        s.catalog.Active(now, labor.Standards(ts.Jurisdiction)...),
		plan: func(active []rules.Rule) ([]rules.Check, error) {
			return labor.Plan(active, ts)
		},
	})
}

// CheckFinancial evaluates an accounting record against the GAAP or IFRS
// rules selected by standard.
func (s *Service) CheckFinancial(ctx context.Context, actor id.ActorID, standard rules.Standard, rec financial.Record) (*models.CheckResult, error) {
	var checkType models.CheckType
	switch standard {
	case rules.StandardGAAP:
		checkType = models.CheckTypeFinancialGAAP
	case rules.StandardIFRS:
		checkType = models.CheckTypeFinancialIFRS
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported financial standard %q", standard))
	}
	if rec == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	now := s.clock.Now()
	return s.check(ctx, now, checkRequest{
		actor:        actor,
		checkType:    checkType,
		resourceType: string(rec.Kind()),
		resourceID:   rec.Reference(),
		rules:        s.catalog.Active(now, standard),
		plan: func(active []rules.Rule) ([]rules.Check, error) {
			return financial.Plan(active, rec, now)
		},
	})
}

func (s *Service) check(ctx context.Context, start time.Time, req checkRequest) (*models.CheckResult, error) {
	if _, err := id.ParseActorID(string(req.actor)); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "compliance.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("check.type", string(req.checkType)),
		attribute.String("check.resource_type", req.resourceType),
	)

	log := models.CheckLog{
		ID:             id.NewCheckID(),
		CheckType:      req.checkType,
		ResourceType:   req.resourceType,
		ResourceID:     req.resourceID,
		ViolationIDs:   []id.ViolationID{},
		RulesEvaluated: make([]string, 0, len(req.rules)),
		CheckedAt:      start,
		CheckedBy:      req.actor,
	}
	for _, r := range req.rules {
		log.RulesEvaluated = append(log.RulesEvaluated, r.Code)
	}

	merged, evalErr := s.evaluate(req)
	if evalErr != nil {
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, "evaluation error")
		return nil, s.recordFailure(ctx, start, log, evalErr)
	}

	byCode := make(map[string]rules.Rule, len(req.rules))
	for _, r := range req.rules {
		byCode[r.Code] = r
	}
	violations := make([]models.Violation, 0, len(merged.Violations))
	for _, draft := range merged.Violations {
		v := newViolation(log, byCode[draft.RuleCode], draft, start)
		violations = append(violations, v)
		log.ViolationIDs = append(log.ViolationIDs, v.ID)
	}
	log.Outcome = models.OutcomePassed
	if len(violations) > 0 {
		log.Outcome = models.OutcomeFailed
	}
	log.DurationMS = s.clock.Now().Sub(start).Milliseconds()

	drafts, err := checkDrafts(log, violations)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.AppendWithRetry(ctx, func(context.Context, *ledger.Entry) ([]ledger.Draft, error) {
		return drafts, nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger append failed")
		return nil, domainError(err, "failed to record compliance check")
	}

	s.metrics.ObserveCheck(string(log.CheckType), string(log.Outcome), s.clock.Now().Sub(start))
	for _, v := range violations {
		s.metrics.IncrementDetected(string(v.Category), string(v.Severity))
	}
	s.logger.InfoContext(ctx, "compliance check recorded",
		"check_id", log.ID,
		"check_type", log.CheckType,
		"resource_id", log.ResourceID,
		"outcome", log.Outcome,
		"violations", len(violations),
	)
	span.SetAttributes(attribute.Int("check.violations", len(violations)))

	return &models.CheckResult{
		Check:      log,
		Compliant:  merged.Compliant,
		Violations: violations,
		Detail:     merged.Detail,
	}, nil
}

// evaluate runs every planned check in parallel. Results are merged in plan
// order, and when several checks fail the earliest one in plan order is
// reported, so the outcome does not depend on scheduling.
func (s *Service) evaluate(req checkRequest) (rules.Result, error) {
	checks, err := req.plan(req.rules)
	if err != nil {
		return rules.Result{}, err
	}

	results := make([]rules.Result, len(checks))
	errs := make([]error, len(checks))
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, c := range checks {
		g.Go(func() error {
			began := time.Now()
			results[i], errs[i] = c.Evaluate()
			s.metrics.ObserveRule(c.Rule.Code, time.Since(began))
			return nil
		})
	}
	_ = g.Wait()

	if err := firstError(errs); err != nil {
		return rules.Result{}, err
	}
	return rules.Merge(checks, results), nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// recordFailure writes an EVALUATION_ERROR check log so the failed attempt is
// itself auditable, then returns the evaluation error to the caller.
func (s *Service) recordFailure(ctx context.Context, start time.Time, log models.CheckLog, evalErr error) error {
	log.Outcome = models.OutcomeEvaluationError
	log.Failure = &models.EvaluationFailure{Message: evalErr.Error()}
	var ee *rules.EvaluationError
	if errors.As(evalErr, &ee) {
		log.Failure = &models.EvaluationFailure{Rule: ee.Rule, Field: ee.Field, Message: ee.Message}
	}
	log.DurationMS = s.clock.Now().Sub(start).Milliseconds()

	draft, err := ledger.NewDraft(log.CheckedBy, models.ActionCheckErrored, models.ResourceCheck, log.ID.String(), log, nil)
	if err != nil {
		return err
	}
	if _, err := s.ledger.AppendWithRetry(ctx, func(context.Context, *ledger.Entry) ([]ledger.Draft, error) {
		return []ledger.Draft{draft}, nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record errored compliance check",
			"check_id", log.ID,
			"error", err,
		)
		return domainError(fmt.Errorf("%w; recording the failed check also failed: %w", evalErr, err), "failed to record compliance check")
	}

	s.metrics.ObserveCheck(string(log.CheckType), string(log.Outcome), s.clock.Now().Sub(start))
	s.logger.WarnContext(ctx, "compliance check could not be completed",
		"check_id", log.ID,
		"check_type", log.CheckType,
		"resource_id", log.ResourceID,
		"rule", log.Failure.Rule,
		"field", log.Failure.Field,
		"error", log.Failure.Message,
	)
	return domainError(&CheckError{Check: log, Err: evalErr}, "compliance check failed")
}

func newViolation(log models.CheckLog, rule rules.Rule, d rules.ViolationDraft, detectedAt time.Time) models.Violation {
	return models.Violation{
		ID:              id.NewViolationID(),
		CheckID:         log.ID,
		Category:        rule.Category(),
		Standard:        rule.Standard,
		RuleCode:        d.RuleCode,
		Code:            d.Code,
		Reference:       d.Reference,
		Severity:        d.Severity,
		ResourceType:    log.ResourceType,
		ResourceID:      log.ResourceID,
		Description:     d.Description,
		FinancialImpact: d.FinancialImpact,
		Details:         d.Details,
		DetectedAt:      detectedAt,
		DetectedBy:      log.CheckedBy,
		Status:          models.StatusOpen,
	}
}

// checkDrafts builds the check log entry followed by one entry per violation.
func checkDrafts(log models.CheckLog, violations []models.Violation) ([]ledger.Draft, error) {
	drafts := make([]ledger.Draft, 0, len(violations)+1)
	d, err := ledger.NewDraft(log.CheckedBy, models.ActionCheckPerformed, models.ResourceCheck, log.ID.String(), log, nil)
	if err != nil {
		return nil, err
	}
	drafts = append(drafts, d)
	for _, v := range violations {
		d, err := ledger.NewDraft(log.CheckedBy, models.ActionViolationDetected, models.ResourceViolation, v.ID.String(), v, nil)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}
