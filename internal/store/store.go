// Package store persists the pipeline's domain entities. Two backends
// implement the same interfaces: PostgresStore for production and
// SQLiteStore for tests and local development, mirroring the teacher
// codebase's postgres/sqlite split.
package store

import (
	"context"
	"time"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/resilience"
)

// LeadFilter scopes a lead listing query.
type LeadFilter struct {
	OrganizationID int64
	IncludeInactive bool
	Limit          int
	Offset         int
}

// Store is the full repository contract used by the pipeline and the HTTP
// API. Relationships are resolved by id through these methods — entities
// never hold embedded object graphs.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error

	CreateOrganization(ctx context.Context, o *model.Organization) (*model.Organization, error)
	GetOrganization(ctx context.Context, id int64) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, o *model.Organization) error

	CreateLead(ctx context.Context, l *model.Lead) (*model.Lead, error)
	CreateLeadsBulk(ctx context.Context, leads []*model.Lead) ([]*model.Lead, error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	UpdateLead(ctx context.Context, l *model.Lead) error
	SoftDeleteLead(ctx context.Context, id int64) error
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	CountLeadsCreatedSince(ctx context.Context, orgID int64, since time.Time) (int, error)

	GetSubscriptionByOrg(ctx context.Context, orgID int64) (*model.Subscription, error)
	UpsertSubscription(ctx context.Context, s *model.Subscription) error

	SeedPlans(ctx context.Context, plans []model.Plan) error
	ListPlans(ctx context.Context) ([]model.Plan, error)
	GetPlan(ctx context.Context, name string) (*model.Plan, error)

	RecordUsage(ctx context.Context, u *model.UsageRecord) error

	AppendScrapingLog(ctx context.Context, l *model.ScrapingLog) error
	AppendEnrichmentLog(ctx context.Context, l *model.EnrichmentLog) error
	ListScrapingLogs(ctx context.Context, leadID int64) ([]model.ScrapingLog, error)
	ListEnrichmentLogs(ctx context.Context, leadID int64) ([]model.EnrichmentLog, error)

	CreateAPIKey(ctx context.Context, k *model.APIKey) error
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id int64) error

	// RecentScrapingFailureRate and RecentEnrichmentFailureRate report the
	// fraction of their respective log rows within the lookback window that
	// recorded success=false. Used by the background monitor, which samples
	// both concurrently; each returns (0, 0) if no rows exist in the window.
	RecentScrapingFailureRate(ctx context.Context, lookback time.Duration) (rate float64, sampleSize int, err error)
	RecentEnrichmentFailureRate(ctx context.Context, lookback time.Duration) (rate float64, sampleSize int, err error)

	// EnqueueDLQ records a lead whose workflow run exhausted its retry
	// policy. DequeueDLQ returns (without removing) entries whose NextRetryAt has elapsed and
	// whose RetryCount is still below MaxRetries, optionally filtered by
	// ErrorType, for a retry-triggering caller to resubmit.
	EnqueueDLQ(ctx context.Context, entry *resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id int64, nextRetryAt time.Time) error
	RemoveDLQ(ctx context.Context, id int64) error
}

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = notFoundErr{}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "store: not found" }
