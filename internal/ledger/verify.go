package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "ledgerguard/pkg/domain-errors"
)

const verifyPageSize = 500

// VerificationResult summarizes a Verify run. FirstInvalid is set only when
// Valid is false.
type VerificationResult struct {
	Valid        bool   `json:"valid"`
	From         int64  `json:"from"`
	To           int64  `json:"to"`
	Checked      int    `json:"checked"`
	FirstInvalid *int64 `json:"first_invalid,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Verify recomputes every digest in [from, to] and checks sequence continuity
// and predecessor links. A negative to means "through the current head".
//
// On a mismatch the result is populated and the error is a
// *ChainIntegrityError naming the first bad sequence.
func (l *Ledger) Verify(ctx context.Context, from, to int64) (VerificationResult, error) {
	if from < 0 {
		return VerificationResult{}, dErrors.New(dErrors.CodeInvalidInput, "verify range must start at or after 0")
	}
	if to >= 0 && to < from {
		return VerificationResult{}, dErrors.New(dErrors.CodeInvalidInput, "verify range end precedes start")
	}

	ctx, span := l.tracer.Start(ctx, "ledger.verify", trace.WithAttributes(
		attribute.Int64("ledger.from", from),
		attribute.Int64("ledger.to", to),
	))
	defer span.End()

	head, err := l.Head(ctx)
	if err != nil {
		return VerificationResult{}, err
	}
	result := VerificationResult{Valid: true, From: from, To: to}
	if head == nil || from > head.Sequence {
		return result, nil
	}
	if to < 0 || to > head.Sequence {
		to = head.Sequence
	}
	result.To = to

	prev := GenesisDigest
	if from > 0 {
		anchorSeq := from - 1
		anchor, err := l.store.Query(ctx, Filter{FromSequence: anchorSeq, ToSequence: &anchorSeq, Limit: 1})
		if err != nil {
			return VerificationResult{}, fmt.Errorf("load verify anchor: %w", err)
		}
		if len(anchor) == 0 {
			return l.fail(ctx, result, &ChainIntegrityError{Sequence: anchorSeq, Reason: "sequence gap"})
		}
		prev = anchor[0].Digest
	}

	expected := from
	for expected <= to {
		page, err := l.store.Query(ctx, Filter{FromSequence: expected, ToSequence: &to, Limit: verifyPageSize})
		if err != nil {
			return VerificationResult{}, fmt.Errorf("load entries from %d: %w", expected, err)
		}
		if len(page) == 0 {
			return l.fail(ctx, result, &ChainIntegrityError{Sequence: expected, Reason: "sequence gap"})
		}
		for _, e := range page {
			if err := checkEntry(e, expected, prev); err != nil {
				return l.fail(ctx, result, err)
			}
			prev = e.Digest
			expected++
			result.Checked++
		}
	}
	return result, nil
}

// checkEntry validates one entry against its expected position and
// predecessor digest.
func checkEntry(e Entry, wantSeq int64, prev Digest) error {
	if e.Sequence != wantSeq {
		return &ChainIntegrityError{Sequence: wantSeq, Reason: fmt.Sprintf("sequence gap: found %d", e.Sequence)}
	}
	if e.PrevDigest != prev {
		return &ChainIntegrityError{
			Sequence: wantSeq,
			Reason:   "broken predecessor link",
			Expected: prev,
			Actual:   e.PrevDigest,
		}
	}
	return checkDigest(e)
}

func (l *Ledger) fail(ctx context.Context, result VerificationResult, err error) (VerificationResult, error) {
	var integrity *ChainIntegrityError
	if errors.As(err, &integrity) {
		seq := integrity.Sequence
		result.FirstInvalid = &seq
		result.Reason = integrity.Reason
	}
	result.Valid = false
	l.metrics.IncrementIntegrityFailure("verify")
	l.logger.ErrorContext(ctx, "CRITICAL: ledger verification failed",
		"from", result.From,
		"to", result.To,
		"checked", result.Checked,
		"error", err,
	)
	return result, err
}
