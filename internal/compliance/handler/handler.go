// Package handler is the thin HTTP surface over the compliance service and
// the ledger verifier. Handlers decode, call one service method and encode;
// the acting identity always comes from the verified bearer token.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/platform/metrics"
	"ledgerguard/internal/platform/middleware"
	rlmodels "ledgerguard/internal/ratelimit/models"
	"ledgerguard/internal/rules"
	"ledgerguard/internal/rules/financial"
	"ledgerguard/internal/rules/labor"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
	"ledgerguard/pkg/platform/clock"
	"ledgerguard/pkg/platform/httputil"
)

const (
	maxBodyBytes           = 1 << 20
	defaultAnalyticsWindow = 30 * 24 * time.Hour
	analyticsDateLayout    = "2006-01-02"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	CheckLabor(ctx context.Context, actor id.ActorID, ts labor.Timesheet) (*models.CheckResult, error)
	CheckFinancial(ctx context.Context, actor id.ActorID, standard rules.Standard, rec financial.Record) (*models.CheckResult, error)
	ResolveViolation(ctx context.Context, actor id.ActorID, violationID id.ViolationID, notes string) (*models.Violation, error)
	GetViolation(ctx context.Context, violationID id.ViolationID) (*models.Violation, error)
	ListViolations(ctx context.Context, filter models.Filter) ([]models.Violation, error)
	SimilarViolations(ctx context.Context, violationID id.ViolationID) ([]models.Violation, error)
	Escalations(ctx context.Context, now time.Time) ([]models.Escalation, error)
	Analytics(ctx context.Context, from, to time.Time) (*models.Analytics, error)
}

// Verifier checks the ledger chain.
type Verifier interface {
	Verify(ctx context.Context, from, to int64) (ledger.VerificationResult, error)
}

// Handler handles compliance and audit endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	verifier     Verifier
	clock        clock.Clock
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	limiter      RateLimiter
}

// RateLimiter returns the budget middleware for an endpoint class.
type RateLimiter interface {
	Limit(class rlmodels.EndpointClass) func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithRateLimiter caps requests per actor on every route.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// New creates a new compliance Handler.
func New(
	service Service,
	verifier Verifier,
	clk clock.Clock,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		service:      service,
		verifier:     verifier,
		clock:        clk,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the compliance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	checks := router.With(h.limit(rlmodels.ClassCheck))
	checks.Post("/compliance/labor", h.handleCheckLabor)
	checks.Post("/compliance/financial/{standard}", h.handleCheckFinancial)
	checks.Post("/compliance/violations/{id}/resolve", h.handleResolveViolation)

	reads := router.With(h.limit(rlmodels.ClassRead))
	reads.Get("/compliance/violations", h.handleListViolations)
	reads.Get("/compliance/violations/{id}", h.handleGetViolation)
	reads.Get("/compliance/violations/{id}/similar", h.handleSimilarViolations)
	reads.Get("/compliance/escalations", h.handleEscalations)
	reads.Get("/compliance/analytics", h.handleAnalytics)

	router.With(h.limit(rlmodels.ClassVerify)).Get("/audit/verify", h.handleVerify)

	r.Mount("/", router)
}

func (h *Handler) limit(class rlmodels.EndpointClass) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.Limit(class)
}

type financialCheckRequest struct {
	Kind   financial.Kind  `json:"kind"`
	Record json.RawMessage `json:"record"`
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleCheckLabor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var ts labor.Timesheet
	if err := decode(w, r, &ts); err != nil {
		h.badRequest(ctx, w, err)
		return
	}
	res, err := h.service.CheckLabor(ctx, middleware.GetActor(ctx), ts)
	if err != nil {
		h.fail(ctx, w, "labor check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleCheckFinancial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	standard := rules.Standard(strings.ToUpper(chi.URLParam(r, "standard")))

	var req financialCheckRequest
	if err := decode(w, r, &req); err != nil {
		h.badRequest(ctx, w, err)
		return
	}
	rec, err := financial.DecodeRecord(req.Kind, req.Record)
	if err != nil {
		h.badRequest(ctx, w, err)
		return
	}
	res, err := h.service.CheckFinancial(ctx, middleware.GetActor(ctx), standard, rec)
	if err != nil {
		h.fail(ctx, w, "financial check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleListViolations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := models.Filter{
		Category:     rules.Category(strings.ToUpper(q.Get("category"))),
		Standard:     rules.Standard(strings.ToUpper(q.Get("standard"))),
		Severity:     rules.Severity(strings.ToUpper(q.Get("severity"))),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Status:       models.Status(strings.ToUpper(q.Get("status"))),
	}
	if raw := q.Get("overdue"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "overdue must be a boolean"))
			return
		}
		filter.OverdueOnly = overdue
	}

	violations, err := h.service.ListViolations(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "list violations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"violations": violations, "count": len(violations)})
}

func (h *Handler) handleGetViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	violationID, err := id.ParseViolationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.GetViolation(ctx, violationID)
	if err != nil {
		h.fail(ctx, w, "get violation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleSimilarViolations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	violationID, err := id.ParseViolationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	similar, err := h.service.SimilarViolations(ctx, violationID)
	if err != nil {
		h.fail(ctx, w, "similar violations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"violations": similar, "count": len(similar)})
}

func (h *Handler) handleResolveViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	violationID, err := id.ParseViolationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req resolveRequest
	if err := decode(w, r, &req); err != nil {
		h.badRequest(ctx, w, err)
		return
	}
	v, err := h.service.ResolveViolation(ctx, middleware.GetActor(ctx), violationID, req.Notes)
	if err != nil {
		h.fail(ctx, w, "resolve violation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleEscalations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	escalations, err := h.service.Escalations(ctx, h.clock.Now())
	if err != nil {
		h.fail(ctx, w, "escalations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"escalations": escalations, "count": len(escalations)})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	to := h.clock.Now()
	from := to.Add(-defaultAnalyticsWindow)
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = parseDay(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = parseDay(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	a, err := h.service.Analytics(ctx, from, to)
	if err != nil {
		h.fail(ctx, w, "analytics failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// handleVerify reports chain verification. A broken chain is a finding, not
// a request failure, so it is returned with 200 and valid=false.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	from, err := parseSequence(q.Get("from"), 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := parseSequence(q.Get("to"), -1)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.verifier.Verify(ctx, from, to)
	var integrity *ledger.ChainIntegrityError
	switch {
	case errors.As(err, &integrity):
		h.logger.ErrorContext(ctx, "CRITICAL: ledger verification failed",
			"sequence", integrity.Sequence,
			"reason", integrity.Reason,
			"request_id", middleware.GetRequestID(ctx),
		)
	case err != nil:
		h.fail(ctx, w, "ledger verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(analyticsDateLayout, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "dates must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

func parseSequence(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "sequence bounds must be integers")
	}
	return n, nil
}

func (h *Handler) badRequest(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "invalid request body",
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body: "+err.Error()))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code, _ := dErrors.CodeOf(err)
	attrs := []any{"request_id", middleware.GetRequestID(ctx), "error", err.Error()}
	switch httputil.StatusFor(code) {
	case http.StatusInternalServerError:
		if code == dErrors.CodeIntegrity {
			h.logger.ErrorContext(ctx, "CRITICAL: "+msg, attrs...)
		} else {
			h.logger.ErrorContext(ctx, msg, attrs...)
		}
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
