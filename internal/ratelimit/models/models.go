package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassCheck: compliance checks, each of which appends to the ledger.
	ClassCheck EndpointClass = "check"
	// ClassRead: violation listings, analytics and escalations.
	ClassRead EndpointClass = "read"
	// ClassVerify: full chain verification, the most expensive read.
	ClassVerify EndpointClass = "verify"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassCheck, ClassRead, ClassVerify:
		return true
	}
	return false
}

// Limit is a request budget over a window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the API response when a budget is spent.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// NewKey builds the counter key for a caller and class. Callers are actor ids
// for authenticated requests and remote addresses otherwise.
func NewKey(caller string, class EndpointClass) string {
	return "ratelimit:" + string(class) + ":" + strings.ToLower(caller)
}
