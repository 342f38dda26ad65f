package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// windowJob builds a reconcile job whose processing window is expressed as
// offsets from now. A zero offset leaves the bound unset.
func windowJob(userID uuid.UUID, notBefore, notAfter time.Duration) *Job {
	job := NewJob(JobTypeReconcileUser, userID)
	if notBefore != 0 {
		t := time.Now().Add(notBefore)
		job.NotBefore = &t
	}
	if notAfter != 0 {
		t := time.Now().Add(notAfter)
		job.NotAfter = &t
	}
	return job
}

func TestNewJob_Defaults(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	job := NewJob(JobTypeReconcileUser, userID)

	if job.ID == uuid.Nil {
		t.Error("job ID not assigned")
	}
	if job.Type != JobTypeReconcileUser {
		t.Errorf("Type = %q, want %q", job.Type, JobTypeReconcileUser)
	}
	if job.UserID != userID {
		t.Errorf("UserID = %s, want %s", job.UserID, userID)
	}
	if job.Metadata == nil {
		t.Error("Metadata not initialized")
	}
	if job.NotBefore != nil || job.NotAfter != nil {
		t.Error("new job should have no processing window")
	}
	if job.RetryCount != 0 || job.MaxRetries != 3 {
		t.Errorf("retry bookkeeping = %d/%d, want 0/3", job.RetryCount, job.MaxRetries)
	}
}

func TestJob_ProcessingWindow(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name          string
		notBefore     time.Duration
		notAfter      time.Duration
		shouldProcess bool
		expired       bool
	}{
		{"no window", 0, 0, true, false},
		{"not-before already passed", -time.Hour, 0, true, false},
		{"not-before still in future", time.Hour, 0, false, false},
		{"not-after already passed", 0, -time.Hour, false, true},
		{"not-after still in future", 0, time.Hour, true, false},
		{"inside window", -time.Hour, time.Hour, true, false},
		{"before window opens", time.Hour, 2 * time.Hour, false, false},
		{"after window closed", -2 * time.Hour, -time.Hour, false, true},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := windowJob(userID, tt.notBefore, tt.notAfter)
			if got := job.ShouldProcess(); got != tt.shouldProcess {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.shouldProcess)
			}
			if got := job.IsExpired(); got != tt.expired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestJob_RetryAccounting(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeReconcileUser, uuid.New())

	// Default budget is three attempts.
	for attempt := 0; attempt < 3; attempt++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at retry count %d, want true", job.RetryCount)
		}
		job.IncrementRetry()
		if job.RetryCount != attempt+1 {
			t.Fatalf("RetryCount = %d after increment, want %d", job.RetryCount, attempt+1)
		}
	}

	if job.CanRetry() {
		t.Errorf("CanRetry() = true at retry count %d, want false", job.RetryCount)
	}

	job.IncrementRetry()
	if job.CanRetry() {
		t.Error("CanRetry() = true past the retry budget, want false")
	}
}

func TestJob_JSONOmitsEmptyWindow(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeReconcileUser, uuid.New())
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"not_before", "not_after"} {
		if _, ok := fields[key]; ok {
			t.Errorf("serialized job contains %q for an unbounded window", key)
		}
	}
	if fields["type"] != string(JobTypeReconcileUser) {
		t.Errorf("serialized type = %v, want %q", fields["type"], JobTypeReconcileUser)
	}
}
