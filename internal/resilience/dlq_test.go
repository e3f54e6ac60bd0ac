package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestDLQEntry_CanRetry(t *testing.T) {
	e := DLQEntry{RetryCount: 2, MaxRetries: 5}
	if !e.CanRetry() {
		t.Error("expected entry below max retries to be retryable")
	}

	e.RetryCount = 5
	if e.CanRetry() {
		t.Error("expected entry at max retries to not be retryable")
	}
}

func TestDLQEntry_Fields(t *testing.T) {
	now := time.Now()
	e := DLQEntry{
		ID:          1,
		LeadID:      42,
		FailedPhase: "Scrape",
		ErrorType:   "transient",
		NextRetryAt: now,
	}
	if e.LeadID != 42 {
		t.Errorf("expected LeadID 42, got %d", e.LeadID)
	}
	if e.FailedPhase != "Scrape" {
		t.Errorf("expected FailedPhase Scrape, got %s", e.FailedPhase)
	}
}

func TestClassifyError_Transient(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if got := ClassifyError(err); got != "transient" {
		t.Errorf("expected transient, got %s", got)
	}
}

func TestClassifyError_Permanent(t *testing.T) {
	err := errors.New("invalid input: missing website")
	if got := ClassifyError(err); got != "permanent" {
		t.Errorf("expected permanent, got %s", got)
	}
}
