package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freightdesk/logistics-backend/pkg/config"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func healthTestConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthReadyReportsDependencies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	HealthReady(healthTestConfig(), nil, map[string]Pinger{
		"db":    okPinger{},
		"redis": okPinger{},
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when all dependencies are up, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ready"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealthReadyFailsWithNilLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	// A down dependency with no logger wired must degrade, not panic.
	HealthReady(healthTestConfig(), nil, map[string]Pinger{
		"db":    okPinger{},
		"redis": downPinger{},
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a dependency is down, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"unavailable"`) {
		t.Fatalf("expected redis marked unavailable, got: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"db":"ok"`) {
		t.Fatalf("expected db marked ok, got: %s", rec.Body.String())
	}
}

func TestHealthReadyMarksMissingDependency(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	HealthReady(healthTestConfig(), nil, map[string]Pinger{
		"queue": nil,
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for an unconfigured dependency, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"queue":"not configured"`) {
		t.Fatalf("expected queue marked not configured, got: %s", rec.Body.String())
	}
}
