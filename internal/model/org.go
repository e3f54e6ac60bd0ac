package model

import "time"

// Organization is the billing and isolation unit; it owns Users and Leads.
type Organization struct {
	ID         int64
	Name       string
	PlanTier   string
	MaxLeads   int
	UsageCount int

	StripeCustomerID     string
	StripeSubscriptionID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a principal that belongs to exactly one Organization.
type User struct {
	ID             int64
	OrganizationID int64
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SubscriptionStatus is the closed set of subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCanceled  SubscriptionStatus = "canceled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionUnpaid    SubscriptionStatus = "unpaid"
)

// Subscription binds an Organization to a Plan. Invariant: at most one row
// per organization.
type Subscription struct {
	ID                   int64
	OrganizationID       int64
	PlanName             string
	Status               SubscriptionStatus
	CancelAtPeriodEnd    bool
	StripeSubscriptionID string
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     *time.Time
}

// Plan is a catalog row: a named tier with a daily lead cap and feature flags.
type Plan struct {
	Name           string
	MaxLeadsPerDay int
	CanExport      bool
	CanUseAI       bool
}

// UsageAction identifies the kind of metered action recorded in a
// UsageRecord row.
type UsageAction string

const (
	UsageActionLeadCreated UsageAction = "lead_created"
	UsageActionAICall      UsageAction = "ai_call"
	UsageActionExport      UsageAction = "export"
)

// UsageRecord is an immutable audit row of a metered action.
type UsageRecord struct {
	ID             int64
	OrganizationID int64
	Action         UsageAction
	Quantity       int
	Timestamp      time.Time
}

// PlanUsage summarizes an organization's current daily usage against its plan.
type PlanUsage struct {
	PlanName              string
	MaxLeadsPerDay         int
	CanExport             bool
	CanUseAI              bool
	CurrentUsage          int
	RemainingDailyLeads   int
	CanProcessMoreToday   bool
}
