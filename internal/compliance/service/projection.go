package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	id "ledgerguard/pkg/domain"
)

var violationActions = []string{models.ActionViolationDetected, models.ActionViolationResolved}

// loadViolations projects violation state from the ledger, in detection
// order. violationID narrows the query to one violation when set.
func (s *Service) loadViolations(ctx context.Context, violationID string) ([]models.Violation, error) {
	entries, err := s.ledger.Query(ctx, ledger.Filter{
		ResourceType: models.ResourceViolation,
		ResourceID:   violationID,
		Actions:      violationActions,
	})
	if err != nil {
		return nil, err
	}
	return project(entries)
}

// project folds detection entries and resolution entries into current
// violation state.
func project(entries []ledger.Entry) ([]models.Violation, error) {
	index := map[string]int{}
	var out []models.Violation
	for _, e := range entries {
		switch e.Action {
		case models.ActionViolationDetected:
			var v models.Violation
			if err := json.Unmarshal(e.After, &v); err != nil {
				return nil, fmt.Errorf("entry %d: decode violation: %w", e.Sequence, err)
			}
			index[e.ResourceID] = len(out)
			out = append(out, v)
		case models.ActionViolationResolved:
			i, ok := index[e.ResourceID]
			if !ok {
				return nil, fmt.Errorf("entry %d: resolution of unknown violation %s", e.Sequence, e.ResourceID)
			}
			if err := applyChanges(&out[i], e.Changes); err != nil {
				return nil, fmt.Errorf("entry %d: %w", e.Sequence, err)
			}
		}
	}
	return out, nil
}

// applyChanges applies the new side of each recorded {field: [old, new]}.
func applyChanges(v *models.Violation, raw json.RawMessage) error {
	var changes map[string][2]json.RawMessage
	if err := json.Unmarshal(raw, &changes); err != nil {
		return fmt.Errorf("decode changes: %w", err)
	}
	for field, pair := range changes {
		var target any
		switch field {
		case "status":
			target = &v.Status
		case "resolved_at":
			target = &v.ResolvedAt
		case "resolved_by":
			target = &v.ResolvedBy
		case "resolution_notes":
			target = &v.ResolutionNotes
		default:
			return fmt.Errorf("unknown changed field %q", field)
		}
		if err := json.Unmarshal(pair[1], target); err != nil {
			return fmt.Errorf("decode %s: %w", field, err)
		}
	}
	return nil
}

func resolutionChanges(actor id.ActorID, at time.Time, notes string) ledger.Changes {
	return ledger.Changes{
		"status":           {models.StatusOpen, models.StatusResolved},
		"resolved_at":      {nil, at},
		"resolved_by":      {nil, actor},
		"resolution_notes": {nil, notes},
	}
}
