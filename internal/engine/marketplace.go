package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispatch/models"
)

type CreateMarketplaceInput struct {
	Name                string   `json:"name" validate:"required,max=200"`
	ServiceAreas        []string `json:"serviceAreas"`
	RadiusKm            float64  `json:"radiusKm" validate:"gte=0"`
	MonthlyFee          float64  `json:"monthlyFee" validate:"gte=0"`
	MinReputation       float64  `json:"minReputation" validate:"gte=0"`
	AutoAcceptBids      bool     `json:"autoAcceptBids"`
	RequireVerification bool     `json:"requireVerification"`
}

// CreateMarketplace opens a new cross-tenant visibility group. The
// creator's tenant becomes the owner and its first member.
func (e *Engine) CreateMarketplace(ctx context.Context, input CreateMarketplaceInput, memberID string) (*models.Marketplace, error) {
	if err := e.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	if !member.Role.CanResolveBids() {
		return nil, fmt.Errorf("%w: creating a marketplace requires owner or admin",
			models.ErrNotAuthorized)
	}

	marketplace := &models.Marketplace{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		OwnerCompanyCode:    member.CompanyCode,
		ServiceAreas:        input.ServiceAreas,
		RadiusKm:            input.RadiusKm,
		MonthlyFee:          input.MonthlyFee,
		MinReputation:       input.MinReputation,
		AutoAcceptBids:      input.AutoAcceptBids,
		RequireVerification: input.RequireVerification,
	}
	if err := e.store.CreateMarketplace(ctx, marketplace); err != nil {
		return nil, err
	}
	if err := e.store.AddMarketplaceMember(ctx, marketplace.ID, member.CompanyCode); err != nil {
		return nil, err
	}
	e.log.Info("marketplace created",
		zap.String("marketplace_id", marketplace.ID),
		zap.String("owner", member.CompanyCode))
	return marketplace, nil
}

// ShareResult carries the fee the caller confirms before committing to the
// share on their side. The share itself is already recorded; fee payment
// is a caller-side gate, not engine enforcement.
type ShareResult struct {
	Call          *models.Call `json:"call"`
	MarketplaceID string       `json:"marketplaceId"`
	DailyFee      float64      `json:"dailyFee"`
}

// ShareToMarketplace widens an open call's visibility to every member
// tenant of the marketplace. Sharing is additive and idempotent and never
// changes the owning tenant.
func (e *Engine) ShareToMarketplace(ctx context.Context, callID, marketplaceID, memberID string) (*ShareResult, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.CompanyCode != member.CompanyCode {
		return nil, fmt.Errorf("%w: only the owning tenant may share a call",
			models.ErrNotAuthorized)
	}
	if call.Status != models.CallOpen || call.Expired(e.now()) {
		return nil, fmt.Errorf("%w: call is %s", models.ErrInvalidState, call.Status)
	}

	marketplace, err := e.store.GetMarketplace(ctx, marketplaceID)
	if err != nil {
		return nil, err
	}
	isMember, err := e.store.IsMarketplaceMember(ctx, marketplaceID, member.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: tenant %s is not a member of marketplace %s",
			models.ErrNotAuthorized, member.CompanyCode, marketplaceID)
	}

	if err := e.store.ShareCall(ctx, callID, marketplaceID, memberID); err != nil {
		return nil, err
	}
	e.event(ctx, callID, models.EventShared, memberID, marketplaceID)
	e.log.Info("call shared",
		zap.String("call_id", callID),
		zap.String("marketplace_id", marketplaceID),
		zap.Float64("daily_fee", marketplace.DailyFee()))

	call, err = e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	return &ShareResult{
		Call:          call,
		MarketplaceID: marketplaceID,
		DailyFee:      marketplace.DailyFee(),
	}, nil
}

// JoinMarketplace adds the member's tenant to a marketplace. Idempotent.
func (e *Engine) JoinMarketplace(ctx context.Context, marketplaceID, memberID string) error {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member %s: %w", memberID, err)
	}
	if !member.Role.CanResolveBids() {
		return fmt.Errorf("%w: membership changes require owner or admin", models.ErrNotAuthorized)
	}
	if _, err := e.store.GetMarketplace(ctx, marketplaceID); err != nil {
		return err
	}
	return e.store.AddMarketplaceMember(ctx, marketplaceID, member.CompanyCode)
}

// LeaveMarketplace removes the member's tenant. Idempotent; calls already
// shared while a member stay shared, and calls the tenant already claimed
// stay claimed.
func (e *Engine) LeaveMarketplace(ctx context.Context, marketplaceID, memberID string) error {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member %s: %w", memberID, err)
	}
	if !member.Role.CanResolveBids() {
		return fmt.Errorf("%w: membership changes require owner or admin", models.ErrNotAuthorized)
	}
	if _, err := e.store.GetMarketplace(ctx, marketplaceID); err != nil {
		return err
	}
	return e.store.RemoveMarketplaceMember(ctx, marketplaceID, member.CompanyCode)
}

func (e *Engine) ListMarketplacesForTenant(ctx context.Context, companyCode string) ([]models.Marketplace, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: companyCode is required", models.ErrValidation)
	}
	return e.store.ListMarketplacesForTenant(ctx, companyCode)
}
