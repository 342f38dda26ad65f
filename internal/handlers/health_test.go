package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) PingContext(ctx context.Context) error { return m.err }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

type mockQueueChecker struct {
	err error
}

func (m *mockQueueChecker) HealthCheck(ctx context.Context) error { return m.err }

func TestHealthCheck_BasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode reports the server is up without touching dependencies,
	// so a failing database must not affect it.
	checker := NewHealthChecker(&mockDBPinger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	checker.HealthCheck(w, httptest.NewRequest("GET", "/healthz", nil))

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", body.Status)
	}
	if body.Checks != nil {
		t.Errorf("Expected no checks in basic mode, got %v", body.Checks)
	}
}

func TestHealthCheck_ExtendedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		db           DBPinger
		cache        Pinger
		queue        QueueChecker
		wantCode     int
		wantStatus   string
		wantRedis    string
		wantRabbitMQ string
	}{
		{
			name:         "all dependencies healthy",
			db:           &mockDBPinger{},
			cache:        &mockPinger{},
			queue:        &mockQueueChecker{},
			wantCode:     http.StatusOK,
			wantStatus:   "healthy",
			wantRedis:    "healthy",
			wantRabbitMQ: "healthy",
		},
		{
			name:         "database down",
			db:           &mockDBPinger{err: errors.New("connection refused")},
			cache:        &mockPinger{},
			queue:        &mockQueueChecker{},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantRedis:    "healthy",
			wantRabbitMQ: "healthy",
		},
		{
			name:         "queue down",
			db:           &mockDBPinger{},
			cache:        &mockPinger{},
			queue:        &mockQueueChecker{err: errors.New("channel closed")},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantRedis:    "healthy",
			wantRabbitMQ: "unhealthy: channel closed",
		},
		{
			name:         "cache and queue not configured",
			db:           &mockDBPinger{},
			cache:        nil,
			queue:        nil,
			wantCode:     http.StatusOK,
			wantStatus:   "healthy",
			wantRedis:    "not configured",
			wantRabbitMQ: "not configured",
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewHealthCheckerWithDeps(tt.db, tt.cache, tt.queue)

			w := httptest.NewRecorder()
			checker.HealthCheck(w, httptest.NewRequest("GET", "/healthz?mode=extended", nil))

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, resp.StatusCode)
			}

			var body HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("Expected status '%s', got '%s'", tt.wantStatus, body.Status)
			}
			if body.Checks == nil {
				t.Fatal("Expected checks in extended mode")
			}
			if body.Checks["redis"] != tt.wantRedis {
				t.Errorf("Expected redis check '%s', got '%s'", tt.wantRedis, body.Checks["redis"])
			}
			if body.Checks["rabbitmq"] != tt.wantRabbitMQ {
				t.Errorf("Expected rabbitmq check '%s', got '%s'", tt.wantRabbitMQ, body.Checks["rabbitmq"])
			}
		})
	}
}
