package service

import (
	"context"
	"encoding/json"
	"strings"

	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
)

const maxResolutionNotes = 4000

// ResolveViolation moves an open violation to resolved by appending a
// resolution entry. Resolving twice fails with *InvalidTransitionError and
// writes nothing. A concurrent resolution surfaces as a ledger conflict, is
// retried against the new head, and is then rejected as a transition.
func (s *Service) ResolveViolation(ctx context.Context, actor id.ActorID, violationID id.ViolationID, notes string) (*models.Violation, error) {
	if _, err := id.ParseActorID(string(actor)); err != nil {
		return nil, err
	}
	if violationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "violation id is required")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxResolutionNotes {
		return nil, dErrors.New(dErrors.CodeValidation, "resolution notes too long")
	}

	ctx, span := s.tracer.Start(ctx, "compliance.resolve")
	defer span.End()

	var resolved models.Violation
	_, err := s.ledger.AppendWithRetry(ctx, func(ctx context.Context, _ *ledger.Entry) ([]ledger.Draft, error) {
		found, err := s.loadViolations(ctx, violationID.String())
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, dErrors.New(dErrors.CodeNotFound, "violation not found")
		}
		current := found[0]
		if !current.IsOpen() {
			return nil, &InvalidTransitionError{ViolationID: violationID, From: current.Status, To: models.StatusResolved}
		}

		now := s.clock.Now()
		resolved = current
		resolved.Status = models.StatusResolved
		resolved.ResolvedAt = &now
		resolved.ResolvedBy = &actor
		resolved.ResolutionNotes = &notes

		draft, err := ledger.NewDraft(actor, models.ActionViolationResolved, models.ResourceViolation,
			violationID.String(), resolved, resolutionChanges(actor, now, notes))
		if err != nil {
			return nil, err
		}
		if draft.Before, err = json.Marshal(current); err != nil {
			return nil, err
		}
		return []ledger.Draft{draft}, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, domainError(err, "failed to resolve violation")
	}

	s.metrics.IncrementResolved()
	s.logger.InfoContext(ctx, "violation resolved",
		"violation_id", violationID,
		"resolved_by", actor,
	)
	return &resolved, nil
}

// GetViolation returns the current projected state of one violation.
func (s *Service) GetViolation(ctx context.Context, violationID id.ViolationID) (*models.Violation, error) {
	found, err := s.loadViolations(ctx, violationID.String())
	if err != nil {
		return nil, domainError(err, "failed to load violation")
	}
	if len(found) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "violation not found")
	}
	return &found[0], nil
}

// ListViolations returns violations matching filter, in detection order.
func (s *Service) ListViolations(ctx context.Context, filter models.Filter) ([]models.Violation, error) {
	all, err := s.loadViolations(ctx, "")
	if err != nil {
		return nil, domainError(err, "failed to list violations")
	}
	now := s.clock.Now()
	out := make([]models.Violation, 0, len(all))
	for _, v := range all {
		if filter.Matches(v, now) {
			out = append(out, v)
		}
	}
	return out, nil
}
