package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ledgerguard/internal/compliance/handler/mocks"
	"ledgerguard/internal/compliance/models"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/platform/middleware"
	rlmiddleware "ledgerguard/internal/ratelimit/middleware"
	rlmodels "ledgerguard/internal/ratelimit/models"
	"ledgerguard/internal/ratelimit/store/bucket"
	"ledgerguard/internal/rules"
	"ledgerguard/internal/rules/financial"
	"ledgerguard/internal/rules/labor"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
	"ledgerguard/pkg/platform/clock"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Verifier

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const actor = id.ActorID("auditor-1")

type tokenValidator struct{}

func (tokenValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &middleware.JWTClaims{Actor: actor, TokenID: "jti"}, nil
}

type HandlerSuite struct {
	suite.Suite
	service  *mocks.MockService
	verifier *mocks.MockVerifier
	router   chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.verifier = mocks.NewMockVerifier(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, s.verifier, clock.NewManual(now), logger, nil, tokenValidator{})
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer good")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func (s *HandlerSuite) TestAuthentication() {
	req := httptest.NewRequest(http.MethodGet, "/compliance/violations", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestCheckLabor() {
	s.Run("actor comes from the token", func() {
		s.service.EXPECT().CheckLabor(gomock.Any(), actor, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.ActorID, ts labor.Timesheet) (*models.CheckResult, error) {
				s.Equal("emp-1", ts.EmployeeRef)
				s.Equal("2026-03-02", ts.WorkweekStart.String())
				s.Require().Len(ts.Days, 1)
				s.True(ts.Days[0].Hours.Equal(decimal.NewFromInt(9)))
				return &models.CheckResult{Check: models.CheckLog{Outcome: models.OutcomePassed}, Compliant: true}, nil
			})

		rec := s.do(http.MethodPost, "/compliance/labor",
			`{"employee_ref":"emp-1","jurisdiction":"CA","workweek_start":"2026-03-02","days":[{"date":"2026-03-02","hours":"9"}],"regular_rate":"20"}`)
		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), `"compliant":true`)
	})

	s.Run("unknown field", func() {
		rec := s.do(http.MethodPost, "/compliance/labor", `{"employee":"emp-1"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("evaluation error", func() {
		s.service.EXPECT().CheckLabor(gomock.Any(), actor, gomock.Any()).
			Return(nil, dErrors.Wrap(rules.Malformed("CA_DAILY_OVERTIME", "days[0].hours", "exceeds 24"), dErrors.CodeUnprocessable, "rule CA_DAILY_OVERTIME: days[0].hours: exceeds 24"))
		rec := s.do(http.MethodPost, "/compliance/labor", `{"employee_ref":"emp-1"}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Contains(rec.Body.String(), "days[0].hours")
	})
}

func (s *HandlerSuite) TestCheckFinancial() {
	s.Run("decodes the record by kind", func() {
		s.service.EXPECT().CheckFinancial(gomock.Any(), actor, rules.StandardIFRS, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.ActorID, _ rules.Standard, rec financial.Record) (*models.CheckResult, error) {
				bs, ok := rec.(financial.BalanceSheet)
				s.Require().True(ok)
				s.Equal("bs-1", bs.Ref)
				s.True(bs.Equity.Equal(decimal.NewFromInt(25)))
				return &models.CheckResult{Compliant: false}, nil
			})
		rec := s.do(http.MethodPost, "/compliance/financial/ifrs",
			`{"kind":"balance_sheet","record":{"ref":"bs-1","assets":"100","liabilities":"70","equity":"25"}}`)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("unknown kind", func() {
		rec := s.do(http.MethodPost, "/compliance/financial/gaap", `{"kind":"invoice","record":{}}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("bad_request", s.errorCode(rec))
	})

	s.Run("unknown record field", func() {
		rec := s.do(http.MethodPost, "/compliance/financial/gaap", `{"kind":"balance_sheet","record":{"ref":"x","cash":"1"}}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("wrong content type", func() {
		req := httptest.NewRequest(http.MethodPost, "/compliance/financial/gaap", strings.NewReader("kind=x"))
		req.Header.Set("Authorization", "Bearer good")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnsupportedMediaType, rec.Code)
	})
}

func (s *HandlerSuite) TestListViolations() {
	s.service.EXPECT().ListViolations(gomock.Any(), models.Filter{
		Category:    rules.CategoryLabor,
		Severity:    rules.SeverityCritical,
		Status:      models.StatusOpen,
		ResourceID:  "emp-1",
		OverdueOnly: true,
	}).Return([]models.Violation{{Code: "MINIMUM_WAGE"}}, nil)

	rec := s.do(http.MethodGet, "/compliance/violations?category=labor_law&severity=critical&status=open&resource_id=emp-1&overdue=true", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"count":1`)

	rec = s.do(http.MethodGet, "/compliance/violations?overdue=maybe", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestResolveViolation() {
	vid := id.NewViolationID()

	s.Run("resolved", func() {
		s.service.EXPECT().ResolveViolation(gomock.Any(), actor, vid, "restated").
			Return(&models.Violation{ID: vid, Status: models.StatusResolved}, nil)
		rec := s.do(http.MethodPost, "/compliance/violations/"+vid.String()+"/resolve", `{"notes":"restated"}`)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"status":"RESOLVED"`)
	})

	s.Run("already resolved", func() {
		s.service.EXPECT().ResolveViolation(gomock.Any(), actor, vid, "").
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid transition RESOLVED -> RESOLVED"))
		rec := s.do(http.MethodPost, "/compliance/violations/"+vid.String()+"/resolve", `{}`)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("malformed id", func() {
		rec := s.do(http.MethodPost, "/compliance/violations/not-a-uuid/resolve", `{}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("invalid_input", s.errorCode(rec))
	})
}

func (s *HandlerSuite) TestGetAndSimilar() {
	vid := id.NewViolationID()
	s.service.EXPECT().GetViolation(gomock.Any(), vid).Return(nil, dErrors.New(dErrors.CodeNotFound, "violation not found"))
	rec := s.do(http.MethodGet, "/compliance/violations/"+vid.String(), "")
	s.Equal(http.StatusNotFound, rec.Code)

	s.service.EXPECT().SimilarViolations(gomock.Any(), vid).Return([]models.Violation{{}, {}}, nil)
	rec = s.do(http.MethodGet, "/compliance/violations/"+vid.String()+"/similar", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"count":2`)
}

func (s *HandlerSuite) TestEscalationsAndAnalytics() {
	s.service.EXPECT().Escalations(gomock.Any(), now).Return(nil, nil)
	rec := s.do(http.MethodGet, "/compliance/escalations", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"count":0`)

	s.service.EXPECT().Analytics(gomock.Any(), now.Add(-30*24*time.Hour), now).Return(&models.Analytics{Total: 3}, nil)
	rec = s.do(http.MethodGet, "/compliance/analytics", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"total":3`)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	s.service.EXPECT().Analytics(gomock.Any(), from, to).Return(&models.Analytics{}, nil)
	rec = s.do(http.MethodGet, "/compliance/analytics?from=2026-03-01&to=2026-03-08", "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/compliance/analytics?from=yesterday", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestVerify() {
	s.Run("whole chain", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), int64(0), int64(-1)).
			Return(ledger.VerificationResult{Valid: true, To: 41, Checked: 42}, nil)
		rec := s.do(http.MethodGet, "/audit/verify", "")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"valid":true`)
	})

	s.Run("broken chain is reported, not failed", func() {
		bad := int64(7)
		s.verifier.EXPECT().Verify(gomock.Any(), int64(5), int64(9)).
			Return(ledger.VerificationResult{Valid: false, From: 5, To: 9, FirstInvalid: &bad, Reason: "digest mismatch"},
				&ledger.ChainIntegrityError{Sequence: 7, Reason: "digest mismatch"})
		rec := s.do(http.MethodGet, "/audit/verify?from=5&to=9", "")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"valid":false`)
		s.Contains(rec.Body.String(), `"first_invalid":7`)
	})

	s.Run("bad bounds", func() {
		rec := s.do(http.MethodGet, "/audit/verify?from=x", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestRoutesShareClassBudgets(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	service := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := bucket.NewInMemoryBucketStore(clock.NewManual(now))
	limiter := rlmiddleware.New(store, map[rlmodels.EndpointClass]rlmodels.Limit{
		rlmodels.ClassVerify: {Requests: 1, Window: time.Minute},
		rlmodels.ClassRead:   {Requests: 5, Window: time.Minute},
	}, logger)

	router := chi.NewRouter()
	New(service, verifier, clock.NewManual(now), logger, nil, tokenValidator{}, WithRateLimiter(limiter)).Register(router)

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	verifier.EXPECT().Verify(gomock.Any(), int64(0), int64(-1)).
		Return(ledger.VerificationResult{Valid: true}, nil).Times(1)
	service.EXPECT().Escalations(gomock.Any(), now).Return(nil, nil).Times(1)

	require.Equal(t, http.StatusOK, get("/audit/verify").Code)
	rec := get("/audit/verify")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	// Reads draw on their own budget.
	assert.Equal(t, http.StatusOK, get("/compliance/escalations").Code)
}
