package models

import (
	"time"

	"github.com/lib/pq"
)

type CallCategory string

const (
	CategoryEmergency CallCategory = "emergency"
	CategoryDaytime   CallCategory = "daytime"
	CategoryScheduled CallCategory = "scheduled"
)

func ValidCallCategory(c CallCategory) bool {
	switch c {
	case CategoryEmergency, CategoryDaytime, CategoryScheduled:
		return true
	default:
		return false
	}
}

type CallStatus string

const (
	CallOpen      CallStatus = "open"
	CallClaimed   CallStatus = "claimed"
	CallExpired   CallStatus = "expired"
	CallCancelled CallStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s CallStatus) Terminal() bool {
	return s == CallClaimed || s == CallExpired || s == CallCancelled
}

type BidStatus string

const (
	BidPending    BidStatus = "pending"
	BidAccepted   BidStatus = "accepted"
	BidRejected   BidStatus = "rejected"
	BidSuperseded BidStatus = "superseded"
)

type MemberRole string

const (
	RoleOwner      MemberRole = "owner"
	RoleAdmin      MemberRole = "admin"
	RoleTechnician MemberRole = "technician"
)

// CanResolveBids reports whether the role may accept or reject bids and
// cancel calls for its company.
func (r MemberRole) CanResolveBids() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Company is a tenant account. Code is the tenant identity used on every
// call; RequireBidApproval selects mediated (bidding) assignment over
// first-come direct claims.
type Company struct {
	Code               string    `db:"code" json:"code"`
	Name               string    `db:"name" json:"name"`
	RequireBidApproval bool      `db:"require_bid_approval" json:"requireBidApproval"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

type Member struct {
	ID          string     `db:"id" json:"id"`
	CompanyCode string     `db:"company_code" json:"companyCode"`
	Username    string     `db:"username" json:"username"`
	DisplayName string     `db:"display_name" json:"displayName"`
	Role        MemberRole `db:"role" json:"role"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// Call is a unit of dispatchable work. Status transitions out of open are
// performed only through the conditional updates in the db package; a call
// has at most one assignee, ever.
type Call struct {
	ID             string       `db:"id" json:"id"`
	CompanyCode    string       `db:"company_code" json:"companyCode"`
	Category       CallCategory `db:"category" json:"category"`
	CustomerName   string       `db:"customer_name" json:"customerName"`
	CustomerPhone  string       `db:"customer_phone" json:"customerPhone"`
	Location       string       `db:"location" json:"location"`
	Description    string       `db:"description" json:"description"`
	EstimatedValue float64      `db:"estimated_value" json:"estimatedValue"`
	Bonus          float64      `db:"bonus" json:"bonus"`
	Status         CallStatus   `db:"status" json:"status"`
	AssignedTo     string       `db:"assigned_to" json:"assignedTo,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	ExpiresAt      time.Time    `db:"expires_at" json:"expiresAt"`
	ResolvedAt     *time.Time   `db:"resolved_at" json:"resolvedAt,omitempty"`

	// SharedTo lists marketplace ids the call has been shared into.
	// Populated from call_shares, not a column.
	SharedTo []string `db:"-" json:"sharedTo,omitempty"`
}

// Expired reports whether the call deadline has passed at now. Callers must
// treat an expired-but-unswept open call as unclaimable.
func (c *Call) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type Bid struct {
	ID         string    `db:"id" json:"id"`
	CallID     string    `db:"call_id" json:"callId"`
	MemberID   string    `db:"member_id" json:"memberId"`
	MemberName string    `db:"member_name" json:"memberName"`
	ETAMinutes int       `db:"eta_minutes" json:"etaMinutes"`
	Status     BidStatus `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Marketplace is a cross-tenant visibility group. Membership lives in
// marketplace_members; rollup statistics are computed on read.
type Marketplace struct {
	ID                  string         `db:"id" json:"id"`
	Name                string         `db:"name" json:"name"`
	OwnerCompanyCode    string         `db:"owner_company_code" json:"ownerCompanyCode"`
	ServiceAreas        pq.StringArray `db:"service_areas" json:"serviceAreas"`
	RadiusKm            float64        `db:"radius_km" json:"radiusKm"`
	MonthlyFee          float64        `db:"monthly_fee" json:"monthlyFee"`
	MinReputation       float64        `db:"min_reputation" json:"minReputation"`
	AutoAcceptBids      bool           `db:"auto_accept_bids" json:"autoAcceptBids"`
	RequireVerification bool           `db:"require_verification" json:"requireVerification"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
}

// DailyFee is the share fee implied by marketplace settings: the monthly
// participation fee pro-rated to a day, zero for free marketplaces.
func (m *Marketplace) DailyFee() float64 {
	if m.MonthlyFee <= 0 {
		return 0
	}
	return m.MonthlyFee / 30
}

// OnCallStatus is the single per-company first-responder record. It is set
// and cleared by staff and never time-expired.
type OnCallStatus struct {
	CompanyCode string     `db:"company_code" json:"companyCode"`
	IsOnCall    bool       `db:"is_on_call" json:"isOnCall"`
	MemberID    string     `db:"member_id" json:"memberId,omitempty"`
	MemberName  string     `db:"member_name" json:"memberName,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
}

// CallEvent is an append-only audit record of a call transition. Calls are
// never deleted, so the event log is the full dispatch history.
type CallEvent struct {
	ID        int64     `db:"id" json:"id"`
	CallID    string    `db:"call_id" json:"callId"`
	Type      string    `db:"event_type" json:"type"`
	ActorID   string    `db:"actor_id" json:"actorId,omitempty"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Call event types.
const (
	EventCreated   = "created"
	EventClaimed   = "claimed"
	EventCancelled = "cancelled"
	EventExpired   = "expired"
	EventShared    = "shared"
	EventBidPlaced = "bid_placed"
	EventBidWon    = "bid_accepted"
	EventBidLost   = "bid_rejected"
)

// TenantStats is the per-company dispatch rollup.
type TenantStats struct {
	CompanyCode string  `db:"-" json:"companyCode"`
	OpenCalls   int     `db:"open_calls" json:"openCalls"`
	Claimed     int     `db:"claimed_calls" json:"claimedCalls"`
	Expired     int     `db:"expired_calls" json:"expiredCalls"`
	Cancelled   int     `db:"cancelled_calls" json:"cancelledCalls"`
	BonusPaid   float64 `db:"bonus_paid" json:"bonusPaid"`
}

// MarketplaceStats is the rollup over calls shared into a marketplace.
type MarketplaceStats struct {
	MarketplaceID      string  `db:"-" json:"marketplaceId"`
	SharedCalls        int     `db:"shared_calls" json:"sharedCalls"`
	TotalValue         float64 `db:"total_value" json:"totalValue"`
	AvgResponseSeconds float64 `db:"avg_response_seconds" json:"avgResponseSeconds"`
}
