package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is used in
// tests and for local/dev `serve` runs where a Postgres instance isn't
// available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	name                   TEXT NOT NULL,
	plan_tier              TEXT NOT NULL DEFAULT 'free',
	max_leads              INTEGER NOT NULL DEFAULT 10,
	usage_count            INTEGER NOT NULL DEFAULT 0,
	stripe_customer_id     TEXT NOT NULL DEFAULT '',
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL REFERENCES organizations(id),
	email           TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	first_name      TEXT NOT NULL DEFAULT '',
	last_name       TEXT NOT NULL DEFAULT '',
	is_active       INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id        INTEGER NOT NULL UNIQUE REFERENCES organizations(id),
	plan_name              TEXT NOT NULL,
	status                 TEXT NOT NULL,
	cancel_at_period_end   INTEGER NOT NULL DEFAULT 0,
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	current_period_start   DATETIME NOT NULL DEFAULT (datetime('now')),
	current_period_end     DATETIME
);

CREATE TABLE IF NOT EXISTS plans (
	name               TEXT PRIMARY KEY,
	max_leads_per_day  INTEGER NOT NULL,
	can_export         INTEGER NOT NULL DEFAULT 0,
	can_use_ai         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leads (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	website               TEXT NOT NULL,
	organization_id       INTEGER NOT NULL REFERENCES organizations(id),
	owner_id              INTEGER NOT NULL REFERENCES users(id),
	company_name          TEXT NOT NULL DEFAULT '',
	about_text            TEXT NOT NULL DEFAULT '',
	industry              TEXT NOT NULL DEFAULT '',
	employees             TEXT NOT NULL DEFAULT '',
	revenue_band          TEXT NOT NULL DEFAULT '',
	founded_year          INTEGER,
	contact_name          TEXT NOT NULL DEFAULT '',
	contact_title         TEXT NOT NULL DEFAULT '',
	email                 TEXT NOT NULL DEFAULT '',
	phone                 TEXT NOT NULL DEFAULT '',
	address               TEXT NOT NULL DEFAULT '',
	linkedin_url          TEXT NOT NULL DEFAULT '',
	twitter_url           TEXT NOT NULL DEFAULT '',
	facebook_url          TEXT NOT NULL DEFAULT '',
	scrape_confidence     REAL NOT NULL DEFAULT 0,
	email_confidence      REAL NOT NULL DEFAULT 0,
	enrichment_confidence REAL NOT NULL DEFAULT 0,
	scrape_source         TEXT NOT NULL DEFAULT 'none',
	email_source          TEXT NOT NULL DEFAULT 'none',
	enrichment_source     TEXT NOT NULL DEFAULT 'none',
	score                 REAL NOT NULL DEFAULT 0,
	qualification_label   TEXT NOT NULL DEFAULT '',
	outreach_message      TEXT NOT NULL DEFAULT '',
	outreach_sent         INTEGER NOT NULL DEFAULT 0,
	outreach_sent_at      DATETIME,
	is_active             INTEGER NOT NULL DEFAULT 1,
	is_verified           INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_org_created ON leads(organization_id, created_at);

CREATE TABLE IF NOT EXISTS usage_records (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL REFERENCES organizations(id),
	action          TEXT NOT NULL,
	quantity        INTEGER NOT NULL,
	timestamp       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scraping_logs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id           INTEGER NOT NULL REFERENCES leads(id),
	method            TEXT NOT NULL,
	success           INTEGER NOT NULL,
	confidence        REAL NOT NULL,
	processing_time_ms INTEGER NOT NULL,
	raw_data          TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id           INTEGER NOT NULL REFERENCES leads(id),
	method            TEXT NOT NULL,
	success           INTEGER NOT NULL,
	confidence        REAL NOT NULL,
	processing_time_ms INTEGER NOT NULL,
	raw_data          TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS api_keys (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL REFERENCES organizations(id),
	user_id         INTEGER NOT NULL REFERENCES users(id),
	key_hash        TEXT NOT NULL,
	key_prefix      TEXT NOT NULL UNIQUE,
	is_active       INTEGER NOT NULL DEFAULT 1,
	is_revoked      INTEGER NOT NULL DEFAULT 0,
	rate_limit      INTEGER NOT NULL DEFAULT 0,
	expires_at      DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id        INTEGER NOT NULL REFERENCES leads(id),
	failed_phase   TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	error_type     TEXT NOT NULL DEFAULT 'permanent',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 5,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at, retry_count);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.OrganizationID, u.Email, u.PasswordHash, u.FirstName, u.LastName, boolToInt(u.IsActive), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create user")
	}
	id, _ := res.LastInsertId()
	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now
	return u, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var active int
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan user")
	}
	u.IsActive = active != 0
	return &u, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, is_active=?, updated_at=? WHERE id=?`,
		u.FirstName, u.LastName, boolToInt(u.IsActive), time.Now().UTC(), u.ID,
	)
	return checkAffected(res, err, "sqlite: update user")
}

func (s *SQLiteStore) CreateOrganization(ctx context.Context, o *model.Organization) (*model.Organization, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (name, plan_tier, max_leads, usage_count, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		o.Name, o.PlanTier, o.MaxLeads, o.UsageCount, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create organization")
	}
	id, _ := res.LastInsertId()
	o.ID = id
	o.CreatedAt, o.UpdatedAt = now, now
	return o, nil
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id int64) (*model.Organization, error) {
	var o model.Organization
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, plan_tier, max_leads, usage_count, stripe_customer_id, stripe_subscription_id, created_at, updated_at
		 FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.PlanTier, &o.MaxLeads, &o.UsageCount, &o.StripeCustomerID, &o.StripeSubscriptionID, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get organization")
	}
	return &o, nil
}

func (s *SQLiteStore) UpdateOrganization(ctx context.Context, o *model.Organization) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET name=?, plan_tier=?, max_leads=?, usage_count=?, updated_at=? WHERE id=?`,
		o.Name, o.PlanTier, o.MaxLeads, o.UsageCount, time.Now().UTC(), o.ID,
	)
	return checkAffected(res, err, "sqlite: update organization")
}

func (s *SQLiteStore) CreateLead(ctx context.Context, l *model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (website, organization_id, owner_id, scrape_source, email_source, enrichment_source, is_active, created_at, updated_at)
		 VALUES (?,?,?,'none','none','none',1,?,?)`,
		l.Website, l.OrganizationID, l.OwnerID, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create lead")
	}
	id, _ := res.LastInsertId()
	l.ID = id
	l.IsActive = true
	l.CreatedAt, l.UpdatedAt = now, now
	l.ScrapeSource, l.EmailSource, l.EnrichmentSource = model.SourceNone, model.SourceNone, model.SourceNone
	return l, nil
}

func (s *SQLiteStore) CreateLeadsBulk(ctx context.Context, leads []*model.Lead) ([]*model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin bulk lead insert")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (website, organization_id, owner_id, scrape_source, email_source, enrichment_source, is_active, created_at, updated_at)
		 VALUES (?,?,?,'none','none','none',1,?,?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare bulk lead insert")
	}
	defer stmt.Close()

	for i, l := range leads {
		res, err := stmt.ExecContext(ctx, l.Website, l.OrganizationID, l.OwnerID, now, now)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: bulk insert lead %d", i)
		}
		id, _ := res.LastInsertId()
		leads[i].ID = id
		leads[i].IsActive = true
		leads[i].CreatedAt, leads[i].UpdatedAt = now, now
		leads[i].ScrapeSource, leads[i].EmailSource, leads[i].EnrichmentSource = model.SourceNone, model.SourceNone, model.SourceNone
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit bulk lead insert")
	}
	return leads, nil
}

func (s *SQLiteStore) scanLeadRow(row *sql.Row) (*model.Lead, error) {
	var l model.Lead
	var scrapeSent, active, verified int
	var sentAt sql.NullTime
	err := row.Scan(&l.ID, &l.Website, &l.OrganizationID, &l.OwnerID, &l.CompanyName, &l.AboutText, &l.Industry,
		&l.Employees, &l.RevenueBand, &l.FoundedYear, &l.ContactName, &l.ContactTitle, &l.Email, &l.Phone,
		&l.Address, &l.LinkedInURL, &l.TwitterURL, &l.FacebookURL, &l.ScrapeConfidence, &l.EmailConfidence,
		&l.EnrichmentConfidence, &l.ScrapeSource, &l.EmailSource, &l.EnrichmentSource, &l.Score,
		&l.QualificationLabel, &l.OutreachMessage, &scrapeSent, &sentAt, &active, &verified, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.OutreachSent = scrapeSent != 0
	l.IsActive = active != 0
	l.IsVerified = verified != 0
	if sentAt.Valid {
		t := sentAt.Time
		l.OutreachSentAt = &t
	}
	return &l, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	l, err := s.scanLeadRow(s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: get lead")
	}
	return l, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, l *model.Lead) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET company_name=?, about_text=?, industry=?, employees=?, revenue_band=?,
			founded_year=?, contact_name=?, contact_title=?, email=?, phone=?, address=?,
			linkedin_url=?, twitter_url=?, facebook_url=?, scrape_confidence=?, email_confidence=?,
			enrichment_confidence=?, scrape_source=?, email_source=?, enrichment_source=?, score=?,
			qualification_label=?, outreach_message=?, outreach_sent=?, outreach_sent_at=?,
			is_active=?, is_verified=?, updated_at=?
		 WHERE id=?`,
		l.CompanyName, l.AboutText, l.Industry, l.Employees, l.RevenueBand, l.FoundedYear, l.ContactName,
		l.ContactTitle, l.Email, l.Phone, l.Address, l.LinkedInURL, l.TwitterURL, l.FacebookURL,
		l.ScrapeConfidence, l.EmailConfidence, l.EnrichmentConfidence, l.ScrapeSource, l.EmailSource,
		l.EnrichmentSource, l.Score, l.QualificationLabel, l.OutreachMessage, boolToInt(l.OutreachSent),
		l.OutreachSentAt, boolToInt(l.IsActive), boolToInt(l.IsVerified), time.Now().UTC(), l.ID,
	)
	return checkAffected(res, err, "sqlite: update lead")
}

func (s *SQLiteStore) SoftDeleteLead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET is_active=0, updated_at=? WHERE id=?`, time.Now().UTC(), id)
	return checkAffected(res, err, "sqlite: soft delete lead")
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = ?`
	args := []any{filter.OrganizationID}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		var l model.Lead
		var sent, active, verified int
		var sentAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.Website, &l.OrganizationID, &l.OwnerID, &l.CompanyName, &l.AboutText, &l.Industry,
			&l.Employees, &l.RevenueBand, &l.FoundedYear, &l.ContactName, &l.ContactTitle, &l.Email, &l.Phone,
			&l.Address, &l.LinkedInURL, &l.TwitterURL, &l.FacebookURL, &l.ScrapeConfidence, &l.EmailConfidence,
			&l.EnrichmentConfidence, &l.ScrapeSource, &l.EmailSource, &l.EnrichmentSource, &l.Score,
			&l.QualificationLabel, &l.OutreachMessage, &sent, &sentAt, &active, &verified, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.OutreachSent = sent != 0
		l.IsActive = active != 0
		l.IsVerified = verified != 0
		if sentAt.Valid {
			t := sentAt.Time
			l.OutreachSentAt = &t
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeadsCreatedSince(ctx context.Context, orgID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE organization_id = ? AND created_at >= ?`, orgID, since,
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count leads created since")
}

func (s *SQLiteStore) GetSubscriptionByOrg(ctx context.Context, orgID int64) (*model.Subscription, error) {
	var sub model.Subscription
	var cancelFlag int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, plan_name, status, cancel_at_period_end, stripe_subscription_id, current_period_start, current_period_end
		 FROM subscriptions WHERE organization_id = ?`, orgID,
	).Scan(&sub.ID, &sub.OrganizationID, &sub.PlanName, &sub.Status, &cancelFlag, &sub.StripeSubscriptionID, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get subscription")
	}
	sub.CancelAtPeriodEnd = cancelFlag != 0
	return &sub, nil
}

func (s *SQLiteStore) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (organization_id, plan_name, status, cancel_at_period_end, stripe_subscription_id, current_period_start, current_period_end)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(organization_id) DO UPDATE SET
			plan_name = excluded.plan_name,
			status = excluded.status,
			cancel_at_period_end = excluded.cancel_at_period_end,
			stripe_subscription_id = CASE WHEN excluded.stripe_subscription_id = '' THEN subscriptions.stripe_subscription_id ELSE excluded.stripe_subscription_id END,
			current_period_end = excluded.current_period_end`,
		sub.OrganizationID, sub.PlanName, sub.Status, boolToInt(sub.CancelAtPeriodEnd), sub.StripeSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
	)
	return eris.Wrap(err, "sqlite: upsert subscription")
}

func (s *SQLiteStore) SeedPlans(ctx context.Context, plans []model.Plan) error {
	for _, p := range plans {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO plans (name, max_leads_per_day, can_export, can_use_ai) VALUES (?,?,?,?)
			 ON CONFLICT(name) DO NOTHING`,
			p.Name, p.MaxLeadsPerDay, boolToInt(p.CanExport), boolToInt(p.CanUseAI),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed plan %s", p.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context) ([]model.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, max_leads_per_day, can_export, can_use_ai FROM plans ORDER BY max_leads_per_day`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list plans")
	}
	defer rows.Close()
	var out []model.Plan
	for rows.Next() {
		var p model.Plan
		var exp, ai int
		if err := rows.Scan(&p.Name, &p.MaxLeadsPerDay, &exp, &ai); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan plan")
		}
		p.CanExport, p.CanUseAI = exp != 0, ai != 0
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list plans iterate")
}

func (s *SQLiteStore) GetPlan(ctx context.Context, name string) (*model.Plan, error) {
	var p model.Plan
	var exp, ai int
	err := s.db.QueryRowContext(ctx, `SELECT name, max_leads_per_day, can_export, can_use_ai FROM plans WHERE name = ?`, name).
		Scan(&p.Name, &p.MaxLeadsPerDay, &exp, &ai)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get plan")
	}
	p.CanExport, p.CanUseAI = exp != 0, ai != 0
	return &p, nil
}

func (s *SQLiteStore) RecordUsage(ctx context.Context, u *model.UsageRecord) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (organization_id, action, quantity, timestamp) VALUES (?,?,?,?)`,
		u.OrganizationID, u.Action, u.Quantity, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: record usage")
	}
	id, _ := res.LastInsertId()
	u.ID = id
	u.Timestamp = now
	return nil
}

func (s *SQLiteStore) AppendScrapingLog(ctx context.Context, l *model.ScrapingLog) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scraping_logs (lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		l.LeadID, l.Method, boolToInt(l.Success), l.Confidence, l.ProcessingTimeMS, l.RawData, l.ErrorMessage, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: append scraping log")
	}
	id, _ := res.LastInsertId()
	l.ID = id
	l.CreatedAt = now
	return nil
}

func (s *SQLiteStore) AppendEnrichmentLog(ctx context.Context, l *model.EnrichmentLog) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_logs (lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		l.LeadID, l.Method, boolToInt(l.Success), l.Confidence, l.ProcessingTimeMS, l.RawData, l.ErrorMessage, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: append enrichment log")
	}
	id, _ := res.LastInsertId()
	l.ID = id
	l.CreatedAt = now
	return nil
}

func (s *SQLiteStore) ListScrapingLogs(ctx context.Context, leadID int64) ([]model.ScrapingLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at
		 FROM scraping_logs WHERE lead_id = ? ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scraping logs")
	}
	defer rows.Close()
	var out []model.ScrapingLog
	for rows.Next() {
		var l model.ScrapingLog
		var success int
		if err := rows.Scan(&l.ID, &l.LeadID, &l.Method, &success, &l.Confidence, &l.ProcessingTimeMS, &l.RawData, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scraping log")
		}
		l.Success = success != 0
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scraping logs iterate")
}

func (s *SQLiteStore) ListEnrichmentLogs(ctx context.Context, leadID int64) ([]model.EnrichmentLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, method, success, confidence, processing_time_ms, raw_data, error_message, created_at
		 FROM enrichment_logs WHERE lead_id = ? ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list enrichment logs")
	}
	defer rows.Close()
	var out []model.EnrichmentLog
	for rows.Next() {
		var l model.EnrichmentLog
		var success int
		if err := rows.Scan(&l.ID, &l.LeadID, &l.Method, &success, &l.Confidence, &l.ProcessingTimeMS, &l.RawData, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enrichment log")
		}
		l.Success = success != 0
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list enrichment logs iterate")
}

func (s *SQLiteStore) CreateAPIKey(ctx context.Context, k *model.APIKey) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (organization_id, user_id, key_hash, key_prefix, is_active, is_revoked, rate_limit, expires_at, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		k.OrganizationID, k.UserID, k.KeyHash, k.KeyPrefix, boolToInt(k.IsActive), boolToInt(k.IsRevoked), k.RateLimit, k.ExpiresAt, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create api key")
	}
	id, _ := res.LastInsertId()
	k.ID = id
	k.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error) {
	var k model.APIKey
	var active, revoked int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, user_id, key_hash, key_prefix, is_active, is_revoked, rate_limit, expires_at, created_at
		 FROM api_keys WHERE key_prefix = ?`, prefix,
	).Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.KeyHash, &k.KeyPrefix, &active, &revoked, &k.RateLimit, &k.ExpiresAt, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get api key by prefix")
	}
	k.IsActive, k.IsRevoked = active != 0, revoked != 0
	return &k, nil
}

func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET is_revoked=1, is_active=0 WHERE id=?`, id)
	return checkAffected(res, err, "sqlite: revoke api key")
}

func (s *SQLiteStore) RecentScrapingFailureRate(ctx context.Context, lookback time.Duration) (float64, int, error) {
	return s.recentFailureRate(ctx, "scraping_logs", lookback)
}

func (s *SQLiteStore) RecentEnrichmentFailureRate(ctx context.Context, lookback time.Duration) (float64, int, error) {
	return s.recentFailureRate(ctx, "enrichment_logs", lookback)
}

func (s *SQLiteStore) recentFailureRate(ctx context.Context, table string, lookback time.Duration) (float64, int, error) {
	since := time.Now().UTC().Add(-lookback)
	var total int
	var failed sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) FROM `+table+` WHERE created_at >= ?`, since,
	).Scan(&total, &failed)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "sqlite: recent failure rate for %s", table)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(failed.Int64) / float64(total), total, nil
}

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry *resilience.DLQEntry) error {
	now := time.Now().UTC()
	if entry.MaxRetries == 0 {
		entry.MaxRetries = 5
	}
	if entry.NextRetryAt.IsZero() {
		entry.NextRetryAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue (lead_id, failed_phase, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		entry.LeadID, entry.FailedPhase, entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries, entry.NextRetryAt, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: enqueue dlq")
	}
	id, _ := res.LastInsertId()
	entry.ID = id
	entry.CreatedAt, entry.LastFailedAt = now, now
	return nil
}

func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, lead_id, failed_phase, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
			 FROM dead_letter_queue WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{time.Now().UTC()}
	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close()

	var out []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FailedPhase, &e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id int64, nextRetryAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue SET retry_count = retry_count + 1, next_retry_at = ?, last_failed_at = ? WHERE id = ?`,
		nextRetryAt, time.Now().UTC(), id,
	)
	return checkAffected(res, err, "sqlite: increment dlq retry")
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return checkAffected(res, err, "sqlite: remove dlq entry")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result, err error, msg string) error {
	if err != nil {
		return eris.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, msg)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
