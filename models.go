package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the credential record for a user of the platform.
// Password hashes, one-time codes, and the refresh token slot never
// serialize to JSON.
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName        string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName         string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"-"`
	EmailVerified    bool       `bun:"is_email_verified" json:"is_email_verified"`
	VerificationCode *string    `bun:"email_verification_code,nullzero" json:"-"`
	ResetCode        *string    `bun:"password_reset_code,nullzero" json:"-"`
	ResetExpiresAt   *time.Time `bun:"password_reset_expires_at,nullzero" json:"-"`
	RefreshToken     *string    `bun:"refresh_token,nullzero" json:"-"`
	Avatar           string     `bun:"avatar" json:"avatar,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Sanitize returns a copy safe to hand back to callers: secrets and
// one-time codes are cleared. The JSON tags already hide them; this
// protects non-JSON consumers as well.
func (a *Account) Sanitize() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.PasswordHash = ""
	c.VerificationCode = nil
	c.ResetCode = nil
	c.ResetExpiresAt = nil
	c.RefreshToken = nil
	return &c
}

// FullName joins the name parts for notification templates.
func (a *Account) FullName() string {
	if a == nil {
		return ""
	}
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Team is a collaboration boundary scoped to exactly one project.
// Every team has exactly one admin membership, created with the team
// and immutable afterwards.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string            `bun:"name,notnull" json:"name,omitempty"`
	ProjectID     uuid.UUID         `bun:"project_id,notnull,type:uuid" json:"project_id,omitempty"`
	Members       []*TeamMembership `bun:"rel:has-many,join:id=team_id" json:"members,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TeamMembership links one Account to one Team with a role. The
// (team_id, account_id) pair is unique.
type TeamMembership struct {
	bun.BaseModel `bun:"table:team_memberships,alias:tmb"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID  `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Role          TeamRole   `bun:"role,notnull" json:"role,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	LastActiveAt  *time.Time `bun:"last_active_at,nullzero" json:"last_active_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Invitation statuses. Expiry is a derived condition checked against
// ExpiresAt, not a stored terminal state.
const (
	InvitationPending  = "PENDING"
	InvitationAccepted = "ACCEPTED"
)

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation is a time-boxed, single-use offer to join a team. The
// offered role is never admin.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID  `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Role          TeamRole   `bun:"role,notnull" json:"role,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	Status        string     `bun:"status,notnull,default:'PENDING'" json:"status,omitempty"`
	Team          *Team      `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the invitation has lapsed at the given time.
func (i *Invitation) Expired(now time.Time) bool {
	if i == nil || i.ExpiresAt == nil {
		return true
	}
	return !i.ExpiresAt.After(now)
}

// Team activity actions recorded by the invitation manager.
const (
	ActivityMemberInvitation  = "member_invitation"
	ActivityMemberJoined      = "member_joined"
	ActivityMemberRoleChanged = "member_role_changed"
	ActivityMemberRemoved     = "member_removed"
)

// TeamActivity is the persisted audit trail of team-level actions.
type TeamActivity struct {
	bun.BaseModel `bun:"table:team_activities,alias:tac"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID      `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	MemberID      uuid.UUID      `bun:"member_id,notnull,type:uuid" json:"member_id,omitempty"`
	Action        string         `bun:"action,notnull" json:"action,omitempty"`
	Description   string         `bun:"description" json:"description,omitempty"`
	Metadata      map[string]any `bun:"metadata,nullzero,type:jsonb" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
