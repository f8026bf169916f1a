package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{err: nil})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != StatusHealthy {
		t.Fatalf("expected healthy status, got %s", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %s", resp.Version)
	}
	if resp.Checks["ok"] != StatusHealthy {
		t.Fatalf("expected ok check to be healthy, got %s", resp.Checks["ok"])
	}
}

func TestReadinessFailsWhenSheetUnreadable(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("sheet", SheetChecker{
		Store: &memoryStore{err: errors.New("sheet missing")},
		Table: "prospects",
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	manager.ReadinessHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Fatalf("expected SERVICE_UNAVAILABLE error code, got %s", resp.Error.Code)
	}
	if resp.Error.Details["probe"] != "ready" {
		t.Fatalf("expected ready probe in details, got %v", resp.Error.Details["probe"])
	}
	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected checks in error details")
	}
	if checks["sheet"] != StatusUnhealthy {
		t.Fatalf("expected sheet check to be unhealthy, got %v", checks["sheet"])
	}
}

func TestLivenessIgnoresCheckers(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("sheet", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestStartupWaitsForStarted(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.SetStarted(false)

	rec := httptest.NewRecorder()
	manager.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 before startup, got %d", rec.Code)
	}

	manager.SetStarted(true)
	rec = httptest.NewRecorder()
	manager.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 after startup, got %d", rec.Code)
	}
}

func TestOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	if status := overallStatus(map[string]string{"sheet": StatusTimeout}); status != StatusDegraded {
		t.Fatalf("expected degraded status, got %s", status)
	}
	if status := overallStatus(map[string]string{"a": StatusTimeout, "b": StatusUnhealthy}); status != StatusUnhealthy {
		t.Fatalf("expected unhealthy status, got %s", status)
	}
	if status := overallStatus(nil); status != StatusHealthy {
		t.Fatalf("expected healthy status, got %s", status)
	}
}

func TestCheckerFunc(t *testing.T) {
	called := false
	var checker HealthChecker = CheckerFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	if err := checker.CheckHealth(context.Background()); err != nil || !called {
		t.Fatalf("expected checker func to run, err=%v", err)
	}
}

