package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/db"
	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresStore with a connection pool sized from
// maxConns/minConns.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if maxConns > 0 {
		pcfg.MaxConns = maxConns
	}
	if minConns > 0 {
		pcfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id                     BIGSERIAL PRIMARY KEY,
	name                   TEXT NOT NULL,
	plan_tier              TEXT NOT NULL DEFAULT 'free',
	max_leads              INT NOT NULL DEFAULT 10,
	usage_count            INT NOT NULL DEFAULT 0,
	stripe_customer_id     TEXT NOT NULL DEFAULT '',
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	organization_id BIGINT NOT NULL REFERENCES organizations(id),
	email           TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	first_name      TEXT NOT NULL DEFAULT '',
	last_name       TEXT NOT NULL DEFAULT '',
	is_active       BOOLEAN NOT NULL DEFAULT true,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id                     BIGSERIAL PRIMARY KEY,
	organization_id        BIGINT NOT NULL UNIQUE REFERENCES organizations(id),
	plan_name              TEXT NOT NULL,
	status                 TEXT NOT NULL,
	cancel_at_period_end   BOOLEAN NOT NULL DEFAULT false,
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	current_period_start   TIMESTAMPTZ NOT NULL DEFAULT now(),
	current_period_end     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS plans (
	name               TEXT PRIMARY KEY,
	max_leads_per_day  INT NOT NULL,
	can_export         BOOLEAN NOT NULL DEFAULT false,
	can_use_ai         BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS leads (
	id                    BIGSERIAL PRIMARY KEY,
	website               TEXT NOT NULL,
	organization_id       BIGINT NOT NULL REFERENCES organizations(id),
	owner_id              BIGINT NOT NULL REFERENCES users(id),
	company_name          TEXT NOT NULL DEFAULT '',
	about_text            TEXT NOT NULL DEFAULT '',
	industry              TEXT NOT NULL DEFAULT '',
	employees             TEXT NOT NULL DEFAULT '',
	revenue_band          TEXT NOT NULL DEFAULT '',
	founded_year          INT,
	contact_name          TEXT NOT NULL DEFAULT '',
	contact_title         TEXT NOT NULL DEFAULT '',
	email                 TEXT NOT NULL DEFAULT '',
	phone                 TEXT NOT NULL DEFAULT '',
	address               TEXT NOT NULL DEFAULT '',
	linkedin_url          TEXT NOT NULL DEFAULT '',
	twitter_url           TEXT NOT NULL DEFAULT '',
	facebook_url          TEXT NOT NULL DEFAULT '',
	scrape_confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
	email_confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	enrichment_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	scrape_source         TEXT NOT NULL DEFAULT 'none',
	email_source          TEXT NOT NULL DEFAULT 'none',
	enrichment_source     TEXT NOT NULL DEFAULT 'none',
	score                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	qualification_label   TEXT NOT NULL DEFAULT '',
	outreach_message      TEXT NOT NULL DEFAULT '',
	outreach_sent         BOOLEAN NOT NULL DEFAULT false,
	outreach_sent_at      TIMESTAMPTZ,
	is_active             BOOLEAN NOT NULL DEFAULT true,
	is_verified           BOOLEAN NOT NULL DEFAULT false,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_org_created ON leads(organization_id, created_at);

CREATE TABLE IF NOT EXISTS usage_records (
	id              BIGSERIAL PRIMARY KEY,
	organization_id BIGINT NOT NULL REFERENCES organizations(id),
	action          TEXT NOT NULL,
	quantity        INT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scraping_logs (
	id                BIGSERIAL PRIMARY KEY,
	lead_id           BIGINT NOT NULL REFERENCES leads(id),
	method            TEXT NOT NULL,
	success           BOOLEAN NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	raw_data          TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id                BIGSERIAL PRIMARY KEY,
	lead_id           BIGINT NOT NULL REFERENCES leads(id),
	method            TEXT NOT NULL,
	success           BOOLEAN NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	raw_data          TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS api_keys (
	id              BIGSERIAL PRIMARY KEY,
	organization_id BIGINT NOT NULL REFERENCES organizations(id),
	user_id         BIGINT NOT NULL REFERENCES users(id),
	key_hash        TEXT NOT NULL,
	key_prefix      TEXT NOT NULL UNIQUE,
	is_active       BOOLEAN NOT NULL DEFAULT true,
	is_revoked      BOOLEAN NOT NULL DEFAULT false,
	rate_limit      INT NOT NULL DEFAULT 0,
	expires_at      TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             BIGSERIAL PRIMARY KEY,
	lead_id        BIGINT NOT NULL REFERENCES leads(id),
	failed_phase   TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	error_type     TEXT NOT NULL DEFAULT 'permanent',
	retry_count    INT NOT NULL DEFAULT 0,
	max_retries    INT NOT NULL DEFAULT 5,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at, retry_count);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$7) RETURNING id`,
		u.OrganizationID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, now,
	).Scan(&u.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create user")
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user by email")
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user")
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *model.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET first_name=$1, last_name=$2, is_active=$3, updated_at=$4 WHERE id=$5`,
		u.FirstName, u.LastName, u.IsActive, time.Now().UTC(), u.ID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update user")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, o *model.Organization) (*model.Organization, error) {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, plan_tier, max_leads, usage_count, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$5) RETURNING id`,
		o.Name, o.PlanTier, o.MaxLeads, o.UsageCount, now,
	).Scan(&o.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create organization")
	}
	o.CreatedAt, o.UpdatedAt = now, now
	return o, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id int64) (*model.Organization, error) {
	var o model.Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, plan_tier, max_leads, usage_count, stripe_customer_id, stripe_subscription_id, created_at, updated_at
		 FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.PlanTier, &o.MaxLeads, &o.UsageCount, &o.StripeCustomerID, &o.StripeSubscriptionID, &o.CreatedAt, &o.UpdatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get organization")
	}
	return &o, nil
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, o *model.Organization) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations SET name=$1, plan_tier=$2, max_leads=$3, usage_count=$4, updated_at=$5 WHERE id=$6`,
		o.Name, o.PlanTier, o.MaxLeads, o.UsageCount, time.Now().UTC(), o.ID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update organization")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, l *model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	l.IsActive = true
	err := s.pool.QueryRow(ctx,
		`INSERT INTO leads (website, organization_id, owner_id, scrape_source, email_source, enrichment_source, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,'none','none','none',true,$4,$4) RETURNING id`,
		l.Website, l.OrganizationID, l.OwnerID, now,
	).Scan(&l.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create lead")
	}
	l.CreatedAt, l.UpdatedAt = now, now
	l.ScrapeSource, l.EmailSource, l.EnrichmentSource = model.SourceNone, model.SourceNone, model.SourceNone
	return l, nil
}

// CreateLeadsBulk inserts many leads via a single COPY into a staging
// table followed by one INSERT...RETURNING, per the bulk-ingest design in
// SPEC_FULL.md §12 (adapted from the teacher's db.BulkUpsert COPY-staging
// pattern; see db.BulkInsertReturningIDs).
func (s *PostgresStore) CreateLeadsBulk(ctx context.Context, leads []*model.Lead) ([]*model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	cols := []string{"website", "organization_id", "owner_id", "scrape_source", "email_source", "enrichment_source", "is_active", "created_at", "updated_at"}
	rows := make([][]any, len(leads))
	for i, l := range leads {
		rows[i] = []any{l.Website, l.OrganizationID, l.OwnerID, "none", "none", "none", true, now, now}
	}

	ids, err := db.BulkInsertReturningIDs(ctx, s.pool, "leads", cols, rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: bulk insert leads")
	}
	for i, l := range leads {
		l.ID = ids[i]
		l.CreatedAt, l.UpdatedAt = now, now
		l.IsActive = true
		l.ScrapeSource, l.EmailSource, l.EnrichmentSource = model.SourceNone, model.SourceNone, model.SourceNone
	}
	return leads, nil
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

const leadColumns = `id, website, organization_id, owner_id, company_name, about_text, industry, employees, revenue_band,
	founded_year, contact_name, contact_title, email, phone, address, linkedin_url, twitter_url, facebook_url,
	scrape_confidence, email_confidence, enrichment_confidence, scrape_source, email_source, enrichment_source,
	score, qualification_label, outreach_message, outreach_sent, outreach_sent_at, is_active, is_verified,
	created_at, updated_at`

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(&l.ID, &l.Website, &l.OrganizationID, &l.OwnerID, &l.CompanyName, &l.AboutText, &l.Industry,
		&l.Employees, &l.RevenueBand, &l.FoundedYear, &l.ContactName, &l.ContactTitle, &l.Email, &l.Phone,
		&l.Address, &l.LinkedInURL, &l.TwitterURL, &l.FacebookURL, &l.ScrapeConfidence, &l.EmailConfidence,
		&l.EnrichmentConfidence, &l.ScrapeSource, &l.EmailSource, &l.EnrichmentSource, &l.Score,
		&l.QualificationLabel, &l.OutreachMessage, &l.OutreachSent, &l.OutreachSentAt, &l.IsActive,
		&l.IsVerified, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead")
	}
	return l, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, l *model.Lead) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET company_name=$1, about_text=$2, industry=$3, employees=$4, revenue_band=$5,
			founded_year=$6, contact_name=$7, contact_title=$8, email=$9, phone=$10, address=$11,
			linkedin_url=$12, twitter_url=$13, facebook_url=$14, scrape_confidence=$15, email_confidence=$16,
			enrichment_confidence=$17, scrape_source=$18, email_source=$19, enrichment_source=$20, score=$21,
			qualification_label=$22, outreach_message=$23, outreach_sent=$24, outreach_sent_at=$25,
			is_active=$26, is_verified=$27, updated_at=$28
		 WHERE id=$29`,
		l.CompanyName, l.AboutText, l.Industry, l.Employees, l.RevenueBand, l.FoundedYear, l.ContactName,
		l.ContactTitle, l.Email, l.Phone, l.Address, l.LinkedInURL, l.TwitterURL, l.FacebookURL,
		l.ScrapeConfidence, l.EmailConfidence, l.EnrichmentConfidence, l.ScrapeSource, l.EmailSource,
		l.EnrichmentSource, l.Score, l.QualificationLabel, l.OutreachMessage, l.OutreachSent, l.OutreachSentAt,
		l.IsActive, l.IsVerified, time.Now().UTC(), l.ID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update lead")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SoftDeleteLead(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE leads SET is_active=false, updated_at=$1 WHERE id=$2`, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrap(err, "postgres: soft delete lead")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1`
	args := []any{filter.OrganizationID}
	if !filter.IncludeInactive {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $2`
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $3`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeadsCreatedSince(ctx context.Context, orgID int64, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE organization_id = $1 AND created_at >= $2`,
		orgID, since,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count leads created since")
	}
	return count, nil
}

func (s *PostgresStore) GetSubscriptionByOrg(ctx context.Context, orgID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, plan_name, status, cancel_at_period_end, stripe_subscription_id, current_period_start, current_period_end
		 FROM subscriptions WHERE organization_id = $1`, orgID,
	).Scan(&sub.ID, &sub.OrganizationID, &sub.PlanName, &sub.Status, &sub.CancelAtPeriodEnd, &sub.StripeSubscriptionID, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get subscription")
	}
	return &sub, nil
}

// UpsertSubscription inserts or updates the single subscription row for an
// organization (the unique constraint on organization_id enforces the
// at-most-one invariant).
func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (organization_id, plan_name, status, cancel_at_period_end, stripe_subscription_id, current_period_start, current_period_end)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (organization_id) DO UPDATE SET
			plan_name = EXCLUDED.plan_name,
			status = EXCLUDED.status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			stripe_subscription_id = CASE WHEN EXCLUDED.stripe_subscription_id = '' THEN subscriptions.stripe_subscription_id ELSE EXCLUDED.stripe_subscription_id END,
			current_period_end = EXCLUDED.current_period_end`,
		sub.OrganizationID, sub.PlanName, sub.Status, sub.CancelAtPeriodEnd, sub.StripeSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
	)
	return eris.Wrap(err, "postgres: upsert subscription")
}

func (s *PostgresStore) SeedPlans(ctx context.Context, plans []model.Plan) error {
	for _, p := range plans {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO plans (name, max_leads_per_day, can_export, can_use_ai) VALUES ($1,$2,$3,$4)
			 ON CONFLICT (name) DO NOTHING`,
			p.Name, p.MaxLeadsPerDay, p.CanExport, p.CanUseAI,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed plan %s", p.Name)
		}
	}
	return nil
}

func (s *PostgresStore) ListPlans(ctx context.Context) ([]model.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, max_leads_per_day, can_export, can_use_ai FROM plans ORDER BY max_leads_per_day`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list plans")
	}
	defer rows.Close()
	var out []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.Name, &p.MaxLeadsPerDay, &p.CanExport, &p.CanUseAI); err != nil {
			return nil, eris.Wrap(err, "postgres: scan plan")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list plans iterate")
}

func (s *PostgresStore) GetPlan(ctx context.Context, name string) (*model.Plan, error) {
	var p model.Plan
	err := s.pool.QueryRow(ctx, `SELECT name, max_leads_per_day, can_export, can_use_ai FROM plans WHERE name = $1`, name).
		Scan(&p.Name, &p.MaxLeadsPerDay, &p.CanExport, &p.CanUseAI)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get plan")
	}
	return &p, nil
}

func (s *PostgresStore) RecordUsage(ctx context.Context, u *model.UsageRecord) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO usage_records (organization_id, action, quantity, timestamp) VALUES ($1,$2,$3,$4) RETURNING id`,
		u.OrganizationID, u.Action, u.Quantity, now,
	).Scan(&u.ID)
	u.Timestamp = now
	return eris.Wrap(err, "postgres: record usage")
}

func (s *PostgresStore) AppendScrapingLog(ctx context.Context, l *model.ScrapingLog) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO scraping_logs (lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		l.LeadID, l.Method, l.Success, l.Confidence, l.ProcessingTimeMS, l.RawData, l.ErrorMessage, now,
	).Scan(&l.ID)
	l.CreatedAt = now
	return eris.Wrap(err, "postgres: append scraping log")
}

func (s *PostgresStore) AppendEnrichmentLog(ctx context.Context, l *model.EnrichmentLog) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO enrichment_logs (lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		l.LeadID, l.Method, l.Success, l.Confidence, l.ProcessingTimeMS, l.RawData, l.ErrorMessage, now,
	).Scan(&l.ID)
	l.CreatedAt = now
	return eris.Wrap(err, "postgres: append enrichment log")
}

func (s *PostgresStore) ListScrapingLogs(ctx context.Context, leadID int64) ([]model.ScrapingLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at
		 FROM scraping_logs WHERE lead_id = $1 ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scraping logs")
	}
	defer rows.Close()
	var out []model.ScrapingLog
	for rows.Next() {
		var l model.ScrapingLog
		if err := rows.Scan(&l.ID, &l.LeadID, &l.Method, &l.Success, &l.Confidence, &l.ProcessingTimeMS, &l.RawData, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scraping log")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scraping logs iterate")
}

func (s *PostgresStore) ListEnrichmentLogs(ctx context.Context, leadID int64) ([]model.EnrichmentLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at
		 FROM enrichment_logs WHERE lead_id = $1 ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list enrichment logs")
	}
	defer rows.Close()
	var out []model.EnrichmentLog
	for rows.Next() {
		var l model.EnrichmentLog
		if err := rows.Scan(&l.ID, &l.LeadID, &l.Method, &l.Success, &l.Confidence, &l.ProcessingTimeMS, &l.RawData, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan enrichment log")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list enrichment logs iterate")
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, k *model.APIKey) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (organization_id, user_id, key_hash, key_prefix, is_active, is_revoked, rate_limit, expires_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		k.OrganizationID, k.UserID, k.KeyHash, k.KeyPrefix, k.IsActive, k.IsRevoked, k.RateLimit, k.ExpiresAt, now,
	).Scan(&k.ID)
	k.CreatedAt = now
	return eris.Wrap(err, "postgres: create api key")
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error) {
	var k model.APIKey
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, user_id, key_hash, key_prefix, is_active, is_revoked, rate_limit, expires_at, created_at
		 FROM api_keys WHERE key_prefix = $1`, prefix,
	).Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.KeyHash, &k.KeyPrefix, &k.IsActive, &k.IsRevoked, &k.RateLimit, &k.ExpiresAt, &k.CreatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get api key by prefix")
	}
	return &k, nil
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET is_revoked=true, is_active=false WHERE id=$1`, id)
	if err != nil {
		return eris.Wrap(err, "postgres: revoke api key")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecentScrapingFailureRate(ctx context.Context, lookback time.Duration) (float64, int, error) {
	return s.recentFailureRate(ctx, "scraping_logs", lookback)
}

func (s *PostgresStore) RecentEnrichmentFailureRate(ctx context.Context, lookback time.Duration) (float64, int, error) {
	return s.recentFailureRate(ctx, "enrichment_logs", lookback)
}

func (s *PostgresStore) recentFailureRate(ctx context.Context, table string, lookback time.Duration) (float64, int, error) {
	since := time.Now().UTC().Add(-lookback)
	var total, failed int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT success) FROM `+table+` WHERE created_at >= $1`, since,
	).Scan(&total, &failed)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "postgres: recent failure rate for %s", table)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(failed) / float64(total), total, nil
}

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry *resilience.DLQEntry) error {
	now := time.Now().UTC()
	if entry.MaxRetries == 0 {
		entry.MaxRetries = 5
	}
	if entry.NextRetryAt.IsZero() {
		entry.NextRetryAt = now
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO dead_letter_queue (lead_id, failed_phase, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8) RETURNING id`,
		entry.LeadID, entry.FailedPhase, entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries, entry.NextRetryAt, now,
	).Scan(&entry.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: enqueue dlq")
	}
	entry.CreatedAt, entry.LastFailedAt = now, now
	return nil
}

func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, lead_id, failed_phase, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
			 FROM dead_letter_queue WHERE next_retry_at <= $1 AND retry_count < max_retries`
	args := []any{time.Now().UTC()}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	if filter.ErrorType != "" {
		args = append(args, filter.ErrorType, limit)
		query += ` AND error_type = $2 ORDER BY next_retry_at ASC LIMIT $3`
	} else {
		args = append(args, limit)
		query += ` ORDER BY next_retry_at ASC LIMIT $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue dlq")
	}
	defer rows.Close()

	var out []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FailedPhase, &e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: dequeue dlq iterate")
}

func (s *PostgresStore) IncrementDLQRetry(ctx context.Context, id int64, nextRetryAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dead_letter_queue SET retry_count = retry_count + 1, next_retry_at = $1, last_failed_at = $2 WHERE id = $3`,
		nextRetryAt, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: increment dlq retry")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	if err != nil {
		return eris.Wrap(err, "postgres: remove dlq entry")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
