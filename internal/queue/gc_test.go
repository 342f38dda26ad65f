package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockDLQPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		purger  DLQPurger
		wantErr bool
	}{
		{
			name:    "nil purger is a no-op",
			purger:  nil,
			wantErr: false,
		},
		{
			name: "purge error surfaces",
			purger: &mockDLQPurger{
				purgeFunc: func(context.Context, time.Duration) (int, error) {
					return 0, errors.New("purge failed")
				},
			},
			wantErr: true,
		},
		{
			name: "successful purge",
			purger: &mockDLQPurger{
				purgeFunc: func(context.Context, time.Duration) (int, error) {
					return 3, nil
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gc := NewGarbageCollector(tt.purger, time.Minute, 24*time.Hour, nil)
			err := gc.collect(context.Background())
			if tt.wantErr && err == nil {
				t.Error("expected error from collect")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("collect: %v", err)
			}
		})
	}
}

func TestGarbageCollector_Collect_PassesRetention(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	mock := &mockDLQPurger{
		purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
			called.Store(true)
			if retention != 24*time.Hour {
				t.Errorf("expected retention 24h, got %v", retention)
			}
			return 0, nil
		},
	}

	gc := NewGarbageCollector(mock, time.Minute, 24*time.Hour, nil)
	if err := gc.collect(context.Background()); err != nil {
		t.Errorf("collect: %v", err)
	}
	if !called.Load() {
		t.Error("PurgeOlderThan was not called")
	}
}

func TestGarbageCollector_Start_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(&mockDLQPurger{}, 24*time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gc.Start(ctx); err == nil {
		t.Error("expected context cancelled error")
	}
}
