package service

import (
	"errors"
	"fmt"

	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/rules"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
	"ledgerguard/pkg/platform/sentinel"
)

// InvalidTransitionError rejects a lifecycle move the state machine does not
// allow. No ledger entry is written.
type InvalidTransitionError struct {
	ViolationID id.ViolationID
	From        models.Status
	To          models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("violation %s: invalid transition %s -> %s", e.ViolationID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return sentinel.ErrInvalidState }

// CheckError reports a check that could not complete. The failed check has
// already been recorded in the ledger as Check.
type CheckError struct {
	Check models.CheckLog
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s could not be completed: %v", e.Check.ID, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// domainError attaches a transport code to core errors while keeping the
// typed error reachable through errors.As.
func domainError(err error, msg string) error {
	var (
		evalErr     *rules.EvaluationError
		integrity   *ledger.ChainIntegrityError
		conflict    *ledger.ConcurrentAppendConflict
		transition  *InvalidTransitionError
		alreadyCode *dErrors.Error
	)
	switch {
	case errors.As(err, &alreadyCode):
		return err
	case errors.As(err, &evalErr):
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, evalErr.Error())
	case errors.As(err, &transition):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, transition.Error())
	case errors.As(err, &integrity):
		return dErrors.Wrap(err, dErrors.CodeIntegrity, "ledger integrity failure")
	case errors.As(err, &conflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "ledger head moved, retry the request")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
