package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgerguard/internal/ledger/metrics"
	dErrors "ledgerguard/pkg/domain-errors"
	"ledgerguard/pkg/platform/clock"
	"ledgerguard/pkg/platform/sentinel"
)

const defaultMaxAttempts = 3

// Ledger is the single serialization point for audit writes. Appends are
// mutually exclusive; reads take no lock because committed entries never
// change.
type Ledger struct {
	store       Store
	clock       clock.Clock
	locker      Locker
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	maxAttempts int

	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger for integrity and conflict reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithLocker layers a cross-process lock over the in-process mutex.
func WithLocker(locker Locker) Option {
	return func(l *Ledger) {
		l.locker = locker
	}
}

// WithMaxAttempts bounds AppendWithRetry.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// New creates a ledger over store, stamping entries with clk.
func New(store Store, clk clock.Clock, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		clock:       clk,
		logger:      slog.Default(),
		tracer:      otel.Tracer("ledgerguard/ledger"),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Head returns the latest committed entry, or nil for an empty chain.
func (l *Ledger) Head(ctx context.Context) (*Entry, error) {
	head, err := l.store.LoadHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger head: %w", err)
	}
	return head, nil
}

// HeadDigest returns the digest a caller must pass as expectedPrev to append
// next. For an empty chain this is GenesisDigest.
func HeadDigest(head *Entry) Digest {
	if head == nil {
		return GenesisDigest
	}
	return head.Digest
}

// Query lists committed entries.
func (l *Ledger) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := l.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	return entries, nil
}

// Append commits a single entry after expectedPrev.
func (l *Ledger) Append(ctx context.Context, expectedPrev Digest, draft Draft) (Entry, error) {
	entries, err := l.AppendUnit(ctx, expectedPrev, draft)
	if err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

// AppendUnit commits drafts as consecutive entries, all or none. It fails with
// *ConcurrentAppendConflict when expectedPrev is not the current head digest
// and with *ChainIntegrityError when the stored head no longer matches its
// own digest.
func (l *Ledger) AppendUnit(ctx context.Context, expectedPrev Digest, drafts ...Draft) ([]Entry, error) {
	if len(drafts) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "append requires at least one entry")
	}
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	ctx, span := l.tracer.Start(ctx, "ledger.append", trace.WithAttributes(
		attribute.Int("ledger.entries", len(drafts)),
	))
	defer span.End()

	start := time.Now()
	entries, err := l.appendLocked(ctx, expectedPrev, drafts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	l.metrics.ObserveAppend(time.Since(start), len(entries))
	span.SetAttributes(attribute.Int64("ledger.head_sequence", entries[len(entries)-1].Sequence))
	return entries, nil
}

func (l *Ledger) appendLocked(ctx context.Context, expectedPrev Digest, drafts []Draft) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		defer unlock()
	}

	head, err := l.store.LoadHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger head: %w", err)
	}

	prev := GenesisDigest
	next := int64(0)
	if head != nil {
		if err := checkDigest(*head); err != nil {
			l.metrics.IncrementIntegrityFailure("append")
			l.logger.ErrorContext(ctx, "CRITICAL: ledger head failed digest check, refusing append",
				"sequence", head.Sequence,
				"error", err,
			)
			return nil, err
		}
		prev = head.Digest
		next = head.Sequence + 1
	}

	if expectedPrev != prev {
		l.metrics.IncrementConflict()
		return nil, &ConcurrentAppendConflict{Expected: expectedPrev, Actual: prev}
	}

	// Postgres keeps microseconds; hashing a finer timestamp would not survive a round trip.
	now := l.clock.Now().UTC().Truncate(time.Microsecond)

	entries := make([]Entry, len(drafts))
	for i, d := range drafts {
		e := Entry{
			Sequence:     next + int64(i),
			ActorID:      d.ActorID,
			Action:       d.Action,
			ResourceType: d.ResourceType,
			ResourceID:   d.ResourceID,
			Before:       d.Before,
			After:        d.After,
			Changes:      d.Changes,
			Timestamp:    now,
			PrevDigest:   prev,
		}
		digest, err := ComputeDigest(e)
		if err != nil {
			return nil, fmt.Errorf("compute digest for sequence %d: %w", e.Sequence, err)
		}
		e.Digest = digest
		entries[i] = e
		prev = digest
	}

	if err := l.store.Persist(ctx, entries...); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Another process committed at the same sequence between our head read and write.
			l.metrics.IncrementConflict()
			return nil, &ConcurrentAppendConflict{Expected: expectedPrev}
		}
		return nil, fmt.Errorf("persist ledger entries: %w", err)
	}
	return entries, nil
}

// BuildFunc produces the drafts to append on top of head (nil for an empty
// chain). It runs once per attempt, so it must derive everything from the
// head it is given.
type BuildFunc func(ctx context.Context, head *Entry) ([]Draft, error)

// AppendWithRetry reads the head, builds drafts and appends them, re-reading
// and rebuilding on *ConcurrentAppendConflict up to the configured attempt
// limit. Any other error is returned immediately.
func (l *Ledger) AppendWithRetry(ctx context.Context, build BuildFunc) ([]Entry, error) {
	var lastErr error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		head, err := l.Head(ctx)
		if err != nil {
			return nil, err
		}
		drafts, err := build(ctx, head)
		if err != nil {
			return nil, err
		}
		entries, err := l.AppendUnit(ctx, HeadDigest(head), drafts...)
		if err == nil {
			return entries, nil
		}
		var conflict *ConcurrentAppendConflict
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastErr = err
		l.logger.DebugContext(ctx, "ledger append conflict, retrying",
			"attempt", attempt,
			"max_attempts", l.maxAttempts,
		)
	}
	return nil, fmt.Errorf("append abandoned after %d attempts: %w", l.maxAttempts, lastErr)
}

func checkDigest(e Entry) error {
	recomputed, err := ComputeDigest(e)
	if err != nil {
		return &ChainIntegrityError{Sequence: e.Sequence, Reason: "entry cannot be canonicalized: " + err.Error()}
	}
	if recomputed != e.Digest {
		return &ChainIntegrityError{
			Sequence: e.Sequence,
			Reason:   "digest mismatch",
			Expected: recomputed,
			Actual:   e.Digest,
		}
	}
	return nil
}
