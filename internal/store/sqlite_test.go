package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/resilience"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(t.Context()))
	return st
}

func seedLeadForDLQ(t *testing.T, st *SQLiteStore) int64 {
	t.Helper()
	org, err := st.CreateOrganization(t.Context(), &model.Organization{Name: "acme"})
	require.NoError(t, err)
	user, err := st.CreateUser(t.Context(), &model.User{OrganizationID: org.ID, Email: "owner@acme.test", PasswordHash: "x"})
	require.NoError(t, err)
	lead, err := st.CreateLead(t.Context(), &model.Lead{Website: "https://acme.test", OrganizationID: org.ID, OwnerID: user.ID})
	require.NoError(t, err)
	return lead.ID
}

func TestEnqueueAndDequeueDLQ(t *testing.T) {
	st := newSQLiteTestStore(t)
	leadID := seedLeadForDLQ(t, st)

	entry := &resilience.DLQEntry{
		LeadID:      leadID,
		FailedPhase: "Scrape",
		Error:       "dial tcp: timeout",
		ErrorType:   "transient",
	}
	require.NoError(t, st.EnqueueDLQ(t.Context(), entry))
	require.NotZero(t, entry.ID)

	entries, err := st.DequeueDLQ(t.Context(), resilience.DLQFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, leadID, entries[0].LeadID)
	require.Equal(t, "Scrape", entries[0].FailedPhase)
	require.Equal(t, "transient", entries[0].ErrorType)
}

func TestDequeueDLQ_FiltersByErrorTypeAndNextRetryAt(t *testing.T) {
	st := newSQLiteTestStore(t)
	leadID := seedLeadForDLQ(t, st)

	transient := &resilience.DLQEntry{LeadID: leadID, FailedPhase: "Scrape", ErrorType: "transient"}
	require.NoError(t, st.EnqueueDLQ(t.Context(), transient))

	permanent := &resilience.DLQEntry{LeadID: leadID, FailedPhase: "CommitLead", ErrorType: "permanent"}
	require.NoError(t, st.EnqueueDLQ(t.Context(), permanent))

	notYet := &resilience.DLQEntry{
		LeadID: leadID, FailedPhase: "Score", ErrorType: "transient",
		NextRetryAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.EnqueueDLQ(t.Context(), notYet))

	entries, err := st.DequeueDLQ(t.Context(), resilience.DLQFilter{ErrorType: "transient", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, transient.ID, entries[0].ID)
}

func TestIncrementDLQRetry(t *testing.T) {
	st := newSQLiteTestStore(t)
	leadID := seedLeadForDLQ(t, st)

	entry := &resilience.DLQEntry{LeadID: leadID, FailedPhase: "Scrape", ErrorType: "transient"}
	require.NoError(t, st.EnqueueDLQ(t.Context(), entry))

	next := time.Now().UTC().Add(5 * time.Minute)
	require.NoError(t, st.IncrementDLQRetry(t.Context(), entry.ID, next))

	entries, err := st.DequeueDLQ(t.Context(), resilience.DLQFilter{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, entries, "entry with future next_retry_at should not be dequeued yet")
}

func TestIncrementDLQRetry_NotFound(t *testing.T) {
	st := newSQLiteTestStore(t)
	err := st.IncrementDLQRetry(t.Context(), 9999, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveDLQ(t *testing.T) {
	st := newSQLiteTestStore(t)
	leadID := seedLeadForDLQ(t, st)

	entry := &resilience.DLQEntry{LeadID: leadID, FailedPhase: "Scrape", ErrorType: "transient"}
	require.NoError(t, st.EnqueueDLQ(t.Context(), entry))
	require.NoError(t, st.RemoveDLQ(t.Context(), entry.ID))

	entries, err := st.DequeueDLQ(t.Context(), resilience.DLQFilter{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRemoveDLQ_NotFound(t *testing.T) {
	st := newSQLiteTestStore(t)
	err := st.RemoveDLQ(t.Context(), 9999)
	require.ErrorIs(t, err, ErrNotFound)
}
