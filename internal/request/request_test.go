package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/taskquest/taskquest/internal/models"
	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1:12345"},
		{"xff over xri", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestProfileFromContext(t *testing.T) {
	t.Parallel()
	p := &models.Profile{ID: uuid.New(), Email: "a@b.c"}
	ctx := WithProfile(context.Background(), p)
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := ProfileFromContext(r)
	if got != p {
		t.Errorf("ProfileFromContext() = %p, want %p", got, p)
	}
	if got != nil && got.Email != "a@b.c" {
		t.Errorf("ProfileFromContext().Email = %q, want a@b.c", got.Email)
	}
}

func TestProfileFromContext_NoProfile(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	got := ProfileFromContext(r)
	if got != nil {
		t.Errorf("ProfileFromContext() = %+v, want nil", got)
	}
}

func TestProfileFromContext_WrongType(t *testing.T) {
	t.Parallel()
	ctx := context.WithValue(context.Background(), ProfileContextKey(), "not a profile")
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := ProfileFromContext(r)
	if got != nil {
		t.Errorf("ProfileFromContext() = %+v, want nil when wrong type", got)
	}
}
