package engine

import (
	"context"
	"fmt"

	"dispatch/models"
)

// GetOnCall returns the tenant's current first-responder record. A tenant
// that never set one gets an empty, not-on-call record.
func (e *Engine) GetOnCall(ctx context.Context, companyCode string) (*models.OnCallStatus, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: companyCode is required", models.ErrValidation)
	}
	return e.store.GetOnCall(ctx, companyCode)
}

// SetOnCall puts a member of the tenant on call, replacing whoever was on
// call before. The record is cleared by staff, never time-expired.
func (e *Engine) SetOnCall(ctx context.Context, companyCode, memberID string) (*models.OnCallStatus, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	if member.CompanyCode != companyCode {
		return nil, fmt.Errorf("%w: member %s does not belong to tenant %s",
			models.ErrNotAuthorized, memberID, companyCode)
	}

	now := e.now()
	status := &models.OnCallStatus{
		CompanyCode: companyCode,
		IsOnCall:    true,
		MemberID:    member.ID,
		MemberName:  member.DisplayName,
		StartedAt:   &now,
	}
	if err := e.store.SetOnCall(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (e *Engine) ClearOnCall(ctx context.Context, companyCode string) error {
	if companyCode == "" {
		return fmt.Errorf("%w: companyCode is required", models.ErrValidation)
	}
	return e.store.ClearOnCall(ctx, companyCode)
}
