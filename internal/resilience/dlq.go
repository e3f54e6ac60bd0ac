package resilience

import "time"

// DLQEntry represents a lead whose pipeline run failed and can be retried
// later. LeadID is the only domain reference carried here — the full lead
// is reloaded from the store at retry time rather than snapshotted, so a
// lead edited between the failure and the retry is retried against its
// current state.
type DLQEntry struct {
	ID           int64
	LeadID       int64
	FailedPhase  string
	Error        string
	ErrorType    string // "transient" or "permanent"
	RetryCount   int
	MaxRetries   int
	NextRetryAt  time.Time
	CreatedAt    time.Time
	LastFailedAt time.Time
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string // "transient", "permanent", or "" for all
	Limit     int
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
