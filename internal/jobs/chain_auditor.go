package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ledgerguard/internal/ledger"
)

// ChainVerifier re-verifies a range of the chain.
type ChainVerifier interface {
	Verify(ctx context.Context, from, to int64) (ledger.VerificationResult, error)
}

// ChainAuditor re-verifies the whole chain on an interval and keeps the last
// result for health reporting. Failures are logged and counted by the ledger
// itself.
type ChainAuditor struct {
	verifier ChainVerifier
	interval time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	last *ledger.VerificationResult
}

func NewChainAuditor(verifier ChainVerifier, interval time.Duration, logger *slog.Logger) *ChainAuditor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ChainAuditor{verifier: verifier, interval: interval, logger: logger}
}

func (a *ChainAuditor) Start(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "chain auditor started", "interval", a.interval)
	for {
		if _, err := a.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.ErrorContext(ctx, "chain audit did not complete", "error", err)
		}
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "chain auditor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce verifies the full chain. A broken chain is recorded as the last
// result and also returned as the *ledger.ChainIntegrityError.
func (a *ChainAuditor) RunOnce(ctx context.Context) (ledger.VerificationResult, error) {
	result, err := a.verifier.Verify(ctx, 0, -1)
	var integrity *ledger.ChainIntegrityError
	if err != nil && !errors.As(err, &integrity) {
		return result, err
	}

	a.mu.Lock()
	a.last = &result
	a.mu.Unlock()

	if err == nil {
		a.logger.DebugContext(ctx, "chain audit passed", "checked", result.Checked, "to", result.To)
	}
	return result, err
}

// Healthy reports false only after an audit found the chain broken.
func (a *ChainAuditor) Healthy() (bool, *ledger.VerificationResult) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return true, nil
	}
	result := *a.last
	return result.Valid, &result
}
