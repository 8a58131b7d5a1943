package services

import "time"

// =============================================================================
// Users
// =============================================================================

// Tier is the subscription tier of a user.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// User is the backend profile merged with the provider principal.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileUpdate is the body for profile create/update calls.
type ProfileUpdate struct {
	Name string `json:"name,omitempty"`
}

// =============================================================================
// Personal access tokens
// =============================================================================

// Token scopes accepted by the backend.
const (
	ScopeAPIRead       = "api:read"
	ScopeAPIWrite      = "api:write"
	ScopeProjectsRead  = "projects:read"
	ScopeProjectsWrite = "projects:write"
	ScopeUsersRead     = "users:read"
	ScopeUsersWrite    = "users:write"
	ScopeAdmin         = "admin"
)

// TokenScopes lists every valid scope in display order.
var TokenScopes = []string{
	ScopeAPIRead, ScopeAPIWrite,
	ScopeProjectsRead, ScopeProjectsWrite,
	ScopeUsersRead, ScopeUsersWrite,
	ScopeAdmin,
}

// PersonalAccessToken is a user-scoped API token.
// Token is only populated in create and rotate responses.
type PersonalAccessToken struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Token      string     `json:"token,omitempty"`
	Scopes     []string   `json:"scopes"`
	ProjectID  string     `json:"projectId,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	IsRevoked  bool       `json:"isRevoked"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// CreateTokenRequest is the body for token creation.
type CreateTokenRequest struct {
	Name          string   `json:"name"`
	Scopes        []string `json:"scopes"`
	ProjectID     string   `json:"projectId,omitempty"`
	ExpiresInDays int      `json:"expiresInDays,omitempty"`
}

// =============================================================================
// Projects
// =============================================================================

// Role is a project membership role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Project is an AI Guard project.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"ownerId"`
	MemberCount int              `json:"memberCount"`
	APIKeyCount int              `json:"apiKeyCount"`
	Role        Role             `json:"role"`
	Members     []ProjectMember  `json:"members,omitempty"`
	Settings    *ProjectSettings `json:"settings,omitempty"`
	Usage       *UsageMetrics    `json:"usage,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ProjectSettings holds per-project limits.
type ProjectSettings struct {
	RateLimiting *struct {
		Enabled     bool `json:"enabled"`
		MaxRequests int  `json:"maxRequests"`
		WindowMs    int  `json:"windowMs"`
	} `json:"rateLimiting,omitempty"`
	Quotas *struct {
		Daily   int `json:"daily,omitempty"`
		Monthly int `json:"monthly,omitempty"`
	} `json:"quotas,omitempty"`
	AllowedProviders []string `json:"allowedProviders,omitempty"`
}

// UsageTotals is a requests/tokens/cost triple.
type UsageTotals struct {
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// UsageMetrics summarizes project usage.
type UsageMetrics struct {
	Total        *UsageTotals `json:"total,omitempty"`
	CurrentMonth *UsageTotals `json:"currentMonth,omitempty"`
	CurrentDay   *UsageTotals `json:"currentDay,omitempty"`
	LastUpdated  string       `json:"lastUpdated,omitempty"`
}

// CreateProjectRequest is the body for project creation.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProjectUpdate is a partial project update. Nil fields are not sent.
type ProjectUpdate struct {
	Name        *string
	Description *string
}

// ProjectMember is a user's membership in a project.
type ProjectMember struct {
	UserID  string    `json:"userId"`
	Email   string    `json:"email,omitempty"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

// AddMemberRequest invites a user by email.
type AddMemberRequest struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// =============================================================================
// Provider API keys
// =============================================================================

// Upstream LLM providers a key can belong to.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// KeyStatus is the state of a provider key.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyInactive KeyStatus = "inactive"
)

// APIKey is an upstream provider key stored in a project.
type APIKey struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Name      string     `json:"name"`
	Provider  string     `json:"provider"`
	KeyPrefix string     `json:"keyPrefix"`
	Status    KeyStatus  `json:"status"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// AddKeyRequest stores a new provider key.
type AddKeyRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

// KeyUpdate is a partial key update. Nil fields are not sent.
type KeyUpdate struct {
	Name   *string
	Status *KeyStatus
}

// =============================================================================
// Usage
// =============================================================================

// Usage is one usage row.
type Usage struct {
	Date     string  `json:"date"`
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// UsageStats is the project usage report.
type UsageStats struct {
	Daily   []Usage     `json:"daily"`
	Monthly []Usage     `json:"monthly"`
	Total   UsageTotals `json:"total"`
}

// UsageQuery filters the usage report.
type UsageQuery struct {
	StartDate string
	EndDate   string
	GroupBy   string
}

// QuotaWindow is usage against a limit.
type QuotaWindow struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// QuotaStatus is the project's quota state.
type QuotaStatus struct {
	Daily   QuotaWindow `json:"daily"`
	Monthly QuotaWindow `json:"monthly"`
}

// =============================================================================
// Dashboard
// =============================================================================

// DashboardStats are the account-wide headline numbers.
type DashboardStats struct {
	TotalRequests  int64   `json:"totalRequests"`
	TotalTokens    int64   `json:"totalTokens"`
	TotalCost      float64 `json:"totalCost"`
	ActiveProjects int     `json:"activeProjects"`
}

// ActivityItem is one entry of the activity feed.
type ActivityItem struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"` // api_call, project_created, key_added, member_invited, error
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	ProjectName string    `json:"projectName,omitempty"`
	Severity    string    `json:"severity,omitempty"` // info, warning, error, success
}

// UsageTrend is one day of the usage trend.
type UsageTrend struct {
	Date     string  `json:"date"`
	Requests int64   `json:"requests"`
	Cost     float64 `json:"cost"`
	Tokens   int64   `json:"tokens"`
}

// ProviderStats is the usage share of one upstream provider.
type ProviderStats struct {
	Provider   string  `json:"provider"`
	Requests   int64   `json:"requests"`
	Cost       float64 `json:"cost"`
	Percentage float64 `json:"percentage"`
}

// Health is the backend health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
