package rules

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is wrapped by every EvaluationError.
var ErrMalformedInput = errors.New("malformed evaluation input")

// EvaluationError reports input an evaluator cannot judge. It names the rule
// and the offending field so operators can trace the bad record.
type EvaluationError struct {
	Rule    string
	Field   string
	Message string
}

func (e *EvaluationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rule %s: %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("rule %s: %s: %s", e.Rule, e.Field, e.Message)
}

func (e *EvaluationError) Unwrap() error { return ErrMalformedInput }

// Malformed builds an EvaluationError.
func Malformed(rule, field, format string, args ...any) *EvaluationError {
	return &EvaluationError{Rule: rule, Field: field, Message: fmt.Sprintf(format, args...)}
}
