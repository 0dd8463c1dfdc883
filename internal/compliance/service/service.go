// Package service is the compliance orchestrator. It routes timesheets and
// accounting records to the active rules, and writes every check (and each
// violation it finds) to the ledger as one atomic unit. Violation state is a
// projection over those ledger entries; the ledger is the only store.
package service

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ledgerguard/internal/compliance/metrics"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/rules"
	"ledgerguard/pkg/platform/clock"
)

// Ledger is the slice of the hash-chained ledger the orchestrator needs.
type Ledger interface {
	Head(ctx context.Context) (*ledger.Entry, error)
	AppendWithRetry(ctx context.Context, build ledger.BuildFunc) ([]ledger.Entry, error)
	Query(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error)
}

// Catalog supplies the rules in effect.
type Catalog interface {
	Active(at time.Time, standards ...rules.Standard) []rules.Rule
}

// Service orchestrates compliance checks and the violation lifecycle.
type Service struct {
	ledger      Ledger
	catalog     Catalog
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	parallelism int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithParallelism bounds concurrent rule evaluations within one check.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New constructs a Service.
func New(l Ledger, catalog Catalog, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		ledger:      l,
		catalog:     catalog,
		clock:       clk,
		logger:      slog.Default(),
		tracer:      otel.Tracer("ledgerguard/compliance"),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
