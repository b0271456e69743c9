// Package engine implements the call dispatch and bidding allocation
// engine: the call registry, the exactly-once claim resolver, the bid
// ledger, the expiration sweeper and the marketplace sharing gateway.
//
// The engine owns no mutable state of its own. Every resolving transition
// goes through a Store compare-and-set whose precondition re-checks the
// call status and deadline, so the exactly-once guarantee holds no matter
// how many request handlers race.
package engine

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dispatch/models"
)

// Store is what the engine needs from persistence. db.Storage implements
// it against Postgres; tests use a mutex-guarded in-memory store. Methods
// returning bool report whether the conditional transition committed.
type Store interface {
	GetCompany(ctx context.Context, code string) (*models.Company, error)
	CreateCompany(ctx context.Context, c *models.Company) error
	GetMember(ctx context.Context, id string) (*models.Member, error)
	CreateMember(ctx context.Context, m *models.Member) error

	CreateCall(ctx context.Context, c *models.Call) error
	GetCall(ctx context.Context, id string) (*models.Call, error)
	ListOpenCallsForTenant(ctx context.Context, companyCode string, now time.Time, limit, offset int) ([]models.Call, error)
	ClaimCall(ctx context.Context, callID, memberID string, now time.Time) (bool, error)
	CancelCall(ctx context.Context, callID string, now time.Time) (bool, error)
	SweepExpiredCalls(ctx context.Context, now time.Time) ([]string, error)

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	ListPendingBids(ctx context.Context, callID string) ([]models.Bid, error)
	AcceptBid(ctx context.Context, bidID string, now time.Time) (bool, error)
	RejectBid(ctx context.Context, bidID string) (bool, error)

	CreateMarketplace(ctx context.Context, m *models.Marketplace) error
	GetMarketplace(ctx context.Context, id string) (*models.Marketplace, error)
	ListMarketplacesForTenant(ctx context.Context, companyCode string) ([]models.Marketplace, error)
	AddMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) error
	RemoveMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) error
	IsMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) (bool, error)
	ShareCall(ctx context.Context, callID, marketplaceID, sharedBy string) error

	GetOnCall(ctx context.Context, companyCode string) (*models.OnCallStatus, error)
	SetOnCall(ctx context.Context, o *models.OnCallStatus) error
	ClearOnCall(ctx context.Context, companyCode string) error

	TenantStats(ctx context.Context, companyCode string, now time.Time) (*models.TenantStats, error)
	MarketplaceStats(ctx context.Context, marketplaceID string) (*models.MarketplaceStats, error)

	AppendCallEvent(ctx context.Context, e *models.CallEvent) error
	ListCallEvents(ctx context.Context, callID string) ([]models.CallEvent, error)
}

type Engine struct {
	store    Store
	log      *zap.Logger
	validate *validator.Validate

	// now is swapped out in tests to drive the deadline clock.
	now func() time.Time
}

func New(store Store, log *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// canSee reports whether a tenant is in the call's visibility set: the
// owning tenant, or a member of any marketplace the call is shared into.
func (e *Engine) canSee(ctx context.Context, call *models.Call, companyCode string) (bool, error) {
	if call.CompanyCode == companyCode {
		return true, nil
	}
	for _, marketplaceID := range call.SharedTo {
		ok, err := e.store.IsMarketplaceMember(ctx, marketplaceID, companyCode)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// event appends an audit record. Audit writes happen after the state
// transition and never fail the operation.
func (e *Engine) event(ctx context.Context, callID, eventType, actorID, detail string) {
	err := e.store.AppendCallEvent(ctx, &models.CallEvent{
		CallID:  callID,
		Type:    eventType,
		ActorID: actorID,
		Detail:  detail,
	})
	if err != nil {
		e.log.Warn("append call event failed",
			zap.String("call_id", callID),
			zap.String("event", eventType),
			zap.Error(err))
	}
}
