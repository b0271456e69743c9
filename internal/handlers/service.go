package handlers

import (
	"context"

	"dispatch/internal/engine"
	"dispatch/models"
)

// Service is the engine surface the HTTP layer depends on. *engine.Engine
// implements it; tests substitute a func-field mock.
type Service interface {
	RegisterCompany(ctx context.Context, input engine.RegisterCompanyInput) (*models.Company, error)
	RegisterMember(ctx context.Context, input engine.RegisterMemberInput) (*models.Member, error)

	CreateCall(ctx context.Context, input engine.CreateCallInput) (*models.Call, error)
	GetCall(ctx context.Context, callID string) (*models.Call, error)
	ListOpenCallsForTenant(ctx context.Context, companyCode string, limit, offset int) ([]models.Call, error)
	CancelCall(ctx context.Context, callID, memberID string) (*models.Call, error)
	ListCallEvents(ctx context.Context, callID, memberID string) ([]models.CallEvent, error)

	ClaimDirect(ctx context.Context, callID, memberID string) (*models.Call, error)
	AcceptBid(ctx context.Context, bidID, memberID string) (*models.Bid, error)
	RejectBid(ctx context.Context, bidID, memberID string) (*models.Bid, error)

	SubmitBid(ctx context.Context, callID, memberID string, etaMinutes int) (*models.Bid, error)
	ListBidsForCall(ctx context.Context, callID, memberID string) ([]models.Bid, error)

	CreateMarketplace(ctx context.Context, input engine.CreateMarketplaceInput, memberID string) (*models.Marketplace, error)
	ShareToMarketplace(ctx context.Context, callID, marketplaceID, memberID string) (*engine.ShareResult, error)
	JoinMarketplace(ctx context.Context, marketplaceID, memberID string) error
	LeaveMarketplace(ctx context.Context, marketplaceID, memberID string) error
	ListMarketplacesForTenant(ctx context.Context, companyCode string) ([]models.Marketplace, error)

	GetOnCall(ctx context.Context, companyCode string) (*models.OnCallStatus, error)
	SetOnCall(ctx context.Context, companyCode, memberID string) (*models.OnCallStatus, error)
	ClearOnCall(ctx context.Context, companyCode string) error

	TenantStats(ctx context.Context, companyCode string) (*models.TenantStats, error)
	MarketplaceStats(ctx context.Context, marketplaceID string) (*models.MarketplaceStats, error)
}
