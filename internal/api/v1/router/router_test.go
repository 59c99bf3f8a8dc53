package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"learngate/internal/api/v1/dto"
	"learngate/internal/clock"
	"learngate/internal/config"
	"learngate/internal/middleware"
	"learngate/internal/model"
	"learngate/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const testSecret = "router-secret"

type stubPlans struct {
	service.PlanService
}

func (stubPlans) ListPlans(context.Context) ([]model.Plan, error) {
	return []model.Plan{{ID: "p1", Name: "Freemium", Status: model.PlanStatusActive, IsDefault: true}}, nil
}

type stubQuota struct {
	service.QuotaService
}

func (stubQuota) CheckQuiz(_ context.Context, _ string, day time.Time) (*model.QuotaStatus, error) {
	return &model.QuotaStatus{Kind: model.QuotaQuiz, Limit: 1, Remaining: 1, Allowed: true, Day: day.Format(clock.DateLayout)}, nil
}

type stubDLQ struct {
	service.DLQService
	calls int
}

func (s *stubDLQ) ProcessAndSave(context.Context, *dto.PubSubPushRequest) error {
	s.calls++
	return nil
}

func token(t *testing.T, role string, modules ...string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role:    role,
		Modules: modules,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func newTestRouter(dlq *stubDLQ) http.Handler {
	cfg := &config.Config{JWTSecret: testSecret, PubSubEmulatorHost: "localhost:8085"}
	return Routes(cfg, Services{
		Plans: stubPlans{},
		Quota: stubQuota{},
		DLQ:   dlq,
		Clock: clock.NewFixed(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.UTC),
	}, zerolog.New(io.Discard))
}

func TestRoutesGuards(t *testing.T) {
	h := newTestRouter(&stubDLQ{})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"versioned health", http.MethodGet, "/v1/healthz", "", http.StatusOK},
		{"no token", http.MethodGet, "/v1/quota/quiz", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/v1/quota/quiz", "garbage", http.StatusUnauthorized},
		{"missing module", http.MethodGet, "/v1/quota/quiz", token(t, "student", "topic"), http.StatusForbidden},
		{"module granted", http.MethodGet, "/v1/quota/quiz", token(t, "student", "quiz"), http.StatusOK},
		{"admin bypasses modules", http.MethodGet, "/v1/quota/quiz", token(t, middleware.RoleAdmin), http.StatusOK},
		{"student on admin", http.MethodGet, "/v1/admin/plans", token(t, "student", "quiz", "topic"), http.StatusForbidden},
		{"admin on admin", http.MethodGet, "/v1/admin/plans", token(t, middleware.RoleAdmin), http.StatusOK},
		{"unknown route", http.MethodGet, "/v1/nope", token(t, "student"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestRoutesDLQWithoutUserAuth(t *testing.T) {
	dlq := &stubDLQ{}
	h := newTestRouter(dlq)

	req := httptest.NewRequest(http.MethodPost, "/v1/dlq/record", strings.NewReader(`{"message":{"messageId":"m1","data":"e30="}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if dlq.calls != 1 {
		t.Fatalf("expected one saved message, got %d", dlq.calls)
	}
}

func TestRoutesApplyCORS(t *testing.T) {
	h := newTestRouter(&stubDLQ{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS headers on cross-origin requests")
	}
}
