package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dispatch/models"
)

// ClaimDirect assigns an open call to a member in a single compare-and-set.
// Direct claims are first-come: the first transition to commit wins and
// there is no secondary tie-break. Submission timestamps are never
// consulted because clocks across callers cannot order anything.
func (e *Engine) ClaimDirect(ctx context.Context, callID, memberID string) (*models.Call, error) {
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
	if company.RequireBidApproval {
		return nil, fmt.Errorf("%w: tenant %s requires bid approval, submit a bid instead",
			models.ErrInvalidState, call.CompanyCode)
	}

	visible, err := e.canSee(ctx, call, member.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("%w: call %s is not visible to tenant %s",
			models.ErrNotAuthorized, callID, member.CompanyCode)
	}

	committed, err := e.store.ClaimCall(ctx, callID, memberID, e.now())
	if err != nil {
		return nil, err
	}
	if !committed {
		if err := e.claimFailure(ctx, callID, memberID); err != nil {
			return nil, err
		}
		// Winner retry: the call is already ours.
		return e.store.GetCall(ctx, callID)
	}

	e.event(ctx, callID, models.EventClaimed, memberID, "direct")
	e.log.Info("call claimed",
		zap.String("call_id", callID),
		zap.String("member", memberID))
	return e.store.GetCall(ctx, callID)
}

// claimFailure translates a lost compare-and-set into the error the caller
// should see, or into the original outcome when the same member retries a
// claim that already won.
func (e *Engine) claimFailure(ctx context.Context, callID, memberID string) error {
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return err
	}
	switch call.Status {
	case models.CallClaimed:
		if call.AssignedTo == memberID {
			// Retried claim by the winner; surface success, not an error.
			return nil
		}
		return fmt.Errorf("%w: assigned to another member", models.ErrAlreadyResolved)
	case models.CallOpen:
		// CAS refused an open call, so the deadline must have passed
		// before the sweeper got to it.
		return fmt.Errorf("%w: call deadline passed", models.ErrInvalidState)
	default:
		return fmt.Errorf("%w: call is %s", models.ErrInvalidState, call.Status)
	}
}

// AcceptBid resolves a call through one of its pending bids: the bid is
// accepted, the call claimed for the bidder and every sibling pending bid
// superseded, all in one atomic store transition. Only owner/admin members
// of the owning tenant may accept.
func (e *Engine) AcceptBid(ctx context.Context, bidID, memberID string) (*models.Bid, error) {
	bid, err := e.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	call, err := e.store.GetCall(ctx, bid.CallID)
	if err != nil {
		return nil, err
	}
	if err := e.requireTenantAdmin(ctx, memberID, call.CompanyCode); err != nil {
		return nil, err
	}

	// A retried accept that already applied surfaces the original outcome.
	if bid.Status == models.BidAccepted &&
		call.Status == models.CallClaimed && call.AssignedTo == bid.MemberID {
		return bid, nil
	}
	if bid.Status != models.BidPending {
		return nil, fmt.Errorf("%w: bid is %s", models.ErrInvalidState, bid.Status)
	}

	committed, err := e.store.AcceptBid(ctx, bidID, e.now())
	if err != nil {
		return nil, err
	}
	if !committed {
		call, err = e.store.GetCall(ctx, bid.CallID)
		if err != nil {
			return nil, err
		}
		if call.Status == models.CallClaimed {
			return nil, fmt.Errorf("%w: call already assigned", models.ErrAlreadyResolved)
		}
		if call.Status == models.CallOpen {
			return nil, fmt.Errorf("%w: call deadline passed", models.ErrInvalidState)
		}
		return nil, fmt.Errorf("%w: call is %s", models.ErrInvalidState, call.Status)
	}

	e.event(ctx, bid.CallID, models.EventBidWon, memberID, bid.ID)
	e.event(ctx, bid.CallID, models.EventClaimed, bid.MemberID, "bid "+bid.ID)
	e.log.Info("bid accepted",
		zap.String("call_id", bid.CallID),
		zap.String("bid_id", bidID),
		zap.String("bidder", bid.MemberID))
	return e.store.GetBid(ctx, bidID)
}

// RejectBid turns a pending bid down without touching the call or the
// other bids.
func (e *Engine) RejectBid(ctx context.Context, bidID, memberID string) (*models.Bid, error) {
	bid, err := e.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	call, err := e.store.GetCall(ctx, bid.CallID)
	if err != nil {
		return nil, err
	}
	if err := e.requireTenantAdmin(ctx, memberID, call.CompanyCode); err != nil {
		return nil, err
	}

	if bid.Status == models.BidRejected {
		return bid, nil
	}
	committed, err := e.store.RejectBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !committed {
		bid, err = e.store.GetBid(ctx, bidID)
		if err != nil {
			return nil, err
		}
		if bid.Status == models.BidRejected {
			return bid, nil
		}
		return nil, fmt.Errorf("%w: bid is %s", models.ErrInvalidState, bid.Status)
	}

	e.event(ctx, bid.CallID, models.EventBidLost, memberID, bid.ID)
	return e.store.GetBid(ctx, bidID)
}

// requireTenantAdmin checks that the acting member is an owner or admin of
// the given tenant.
func (e *Engine) requireTenantAdmin(ctx context.Context, memberID, companyCode string) error {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member %s: %w", memberID, err)
	}
	if member.CompanyCode != companyCode || !member.Role.CanResolveBids() {
		return fmt.Errorf("%w: requires owner or admin of tenant %s",
			models.ErrNotAuthorized, companyCode)
	}
	return nil
}
