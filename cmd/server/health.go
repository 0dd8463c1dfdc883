package main

import (
	"context"
	"net/http"
	"time"

	"ledgerguard/internal/jobs"
	"ledgerguard/pkg/platform/httputil"
)

type healthCheck struct {
	name  string
	check func(context.Context) error
}

type healthChecks struct {
	checks  []healthCheck
	auditor *jobs.ChainAuditor
}

func (h *healthChecks) add(name string, check func(context.Context) error) {
	h.checks = append(h.checks, healthCheck{name: name, check: check})
}

// handle reports dependency reachability and the last chain audit. A broken
// chain makes the service unhealthy even when every dependency is up.
func (h *healthChecks) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := map[string]string{}
	for _, c := range h.checks {
		if err := c.check(ctx); err != nil {
			components[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[c.name] = "ok"
	}

	body := map[string]any{"components": components}
	if h.auditor != nil {
		ok, last := h.auditor.Healthy()
		body["ledger_audit"] = last
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body["status"] = "ok"
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, body)
}
