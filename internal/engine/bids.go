package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispatch/models"
)

// SubmitBid records a worker's offer on an open call under a tenant whose
// policy requires bid approval. Resubmitting supersedes the bidder's
// earlier pending bid on the same call.
func (e *Engine) SubmitBid(ctx context.Context, callID, memberID string, etaMinutes int) (*models.Bid, error) {
	if etaMinutes <= 0 {
		return nil, fmt.Errorf("%w: etaMinutes must be positive", models.ErrValidation)
	}
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}

	company, err := e.store.GetCompany(ctx, call.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !company.RequireBidApproval {
		return nil, fmt.Errorf("%w: tenant %s accepts direct claims only",
			models.ErrBiddingDisabled, call.CompanyCode)
	}

	visible, err := e.canSee(ctx, call, member.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("%w: call %s is not visible to tenant %s",
			models.ErrNotAuthorized, callID, member.CompanyCode)
	}

	if call.Status != models.CallOpen || call.Expired(e.now()) {
		return nil, fmt.Errorf("%w: %s", models.ErrCallNotOpen, call.Status)
	}

	bid := &models.Bid{
		ID:         uuid.NewString(),
		CallID:     callID,
		MemberID:   memberID,
		MemberName: member.DisplayName,
		ETAMinutes: etaMinutes,
		Status:     models.BidPending,
	}
	if err := e.store.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	e.event(ctx, callID, models.EventBidPlaced, memberID, bid.ID)
	e.log.Info("bid submitted",
		zap.String("call_id", callID),
		zap.String("bid_id", bid.ID),
		zap.String("member", memberID),
		zap.Int("eta_minutes", etaMinutes))
	return bid, nil
}

// ListBidsForCall returns the pending bids in submission order for the
// owning tenant's staff. The order is presentation only; resolution always
// goes through an explicit AcceptBid.
func (e *Engine) ListBidsForCall(ctx context.Context, callID, memberID string) ([]models.Bid, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if member.CompanyCode != call.CompanyCode {
		return nil, fmt.Errorf("%w: bids are visible to the owning tenant only",
			models.ErrNotAuthorized)
	}
	return e.store.ListPendingBids(ctx, callID)
}
