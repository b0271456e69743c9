package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispatch/models"
)

// CreateCallInput is the payload the voice-intake collaborator delivers.
// The intake sends a relative expiration offset per call category; the
// engine derives the absolute deadline.
type CreateCallInput struct {
	CompanyCode      string              `json:"companyCode" validate:"required"`
	Category         models.CallCategory `json:"category" validate:"required,oneof=emergency daytime scheduled"`
	CustomerName     string              `json:"customerName" validate:"required,max=200"`
	CustomerPhone    string              `json:"customerPhone" validate:"max=40"`
	Location         string              `json:"location" validate:"max=500"`
	Description      string              `json:"description" validate:"max=2000"`
	EstimatedValue   float64             `json:"estimatedValue" validate:"gte=0"`
	Bonus            float64             `json:"bonus" validate:"gte=0"`
	ExpiresInSeconds int                 `json:"expiresInSeconds" validate:"required,gt=0"`
}

// CreateCall registers a new open call with an absolute deadline.
func (e *Engine) CreateCall(ctx context.Context, input CreateCallInput) (*models.Call, error) {
	if err := e.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if _, err := e.store.GetCompany(ctx, input.CompanyCode); err != nil {
		return nil, fmt.Errorf("company %s: %w", input.CompanyCode, err)
	}

	now := e.now()
	call := &models.Call{
		ID:             uuid.NewString(),
		CompanyCode:    input.CompanyCode,
		Category:       input.Category,
		CustomerName:   input.CustomerName,
		CustomerPhone:  input.CustomerPhone,
		Location:       input.Location,
		Description:    input.Description,
		EstimatedValue: input.EstimatedValue,
		Bonus:          input.Bonus,
		Status:         models.CallOpen,
		ExpiresAt:      now.Add(time.Duration(input.ExpiresInSeconds) * time.Second),
	}
	if err := e.store.CreateCall(ctx, call); err != nil {
		return nil, err
	}
	e.event(ctx, call.ID, models.EventCreated, "", string(call.Category))

	e.log.Info("call created",
		zap.String("call_id", call.ID),
		zap.String("company", call.CompanyCode),
		zap.String("category", string(call.Category)),
		zap.Time("expires_at", call.ExpiresAt))
	return call, nil
}

func (e *Engine) GetCall(ctx context.Context, callID string) (*models.Call, error) {
	return e.store.GetCall(ctx, callID)
}

// ListOpenCallsForTenant returns the calls the tenant may act on: its own
// open calls plus calls shared into marketplaces it belongs to. Calls past
// their deadline are excluded even when the sweeper has not run yet.
func (e *Engine) ListOpenCallsForTenant(ctx context.Context, companyCode string, limit, offset int) ([]models.Call, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: companyCode is required", models.ErrValidation)
	}
	return e.store.ListOpenCallsForTenant(ctx, companyCode, e.now(), limit, offset)
}

// CancelCall cancels an open call. Only owner or admin members of the
// owning tenant may cancel; sharing a call to a marketplace does not
// transfer cancellation rights. Retrying a cancel that already committed
// returns the cancelled call instead of an error.
func (e *Engine) CancelCall(ctx context.Context, callID, memberID string) (*models.Call, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if member.CompanyCode != call.CompanyCode || !member.Role.CanResolveBids() {
		return nil, fmt.Errorf("%w: cancel requires owner or admin of the owning tenant", models.ErrNotAuthorized)
	}

	committed, err := e.store.CancelCall(ctx, callID, e.now())
	if err != nil {
		return nil, err
	}
	if !committed {
		// Someone resolved the call first. A repeated cancel surfaces the
		// original outcome; anything else is a state error.
		call, err = e.store.GetCall(ctx, callID)
		if err != nil {
			return nil, err
		}
		if call.Status == models.CallCancelled {
			return call, nil
		}
		return nil, fmt.Errorf("%w: call is %s", models.ErrInvalidState, call.Status)
	}

	e.event(ctx, callID, models.EventCancelled, memberID, "")
	e.log.Info("call cancelled",
		zap.String("call_id", callID),
		zap.String("member", memberID))
	return e.store.GetCall(ctx, callID)
}

// RegisterCompany and RegisterMember provision the directory records the
// engine reads for policy and authorization. The CRM keeps the full
// profiles; the engine only needs code, role and bidding policy.

type RegisterCompanyInput struct {
	Code               string `json:"code" validate:"required,max=40"`
	Name               string `json:"name" validate:"required,max=200"`
	RequireBidApproval bool   `json:"requireBidApproval"`
}

func (e *Engine) RegisterCompany(ctx context.Context, input RegisterCompanyInput) (*models.Company, error) {
	if err := e.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	company := &models.Company{
		Code:               input.Code,
		Name:               input.Name,
		RequireBidApproval: input.RequireBidApproval,
	}
	if err := e.store.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	e.log.Info("company registered",
		zap.String("company", company.Code),
		zap.Bool("require_bid_approval", company.RequireBidApproval))
	return company, nil
}

type RegisterMemberInput struct {
	CompanyCode string            `json:"companyCode" validate:"required"`
	Username    string            `json:"username" validate:"required,max=100"`
	DisplayName string            `json:"displayName" validate:"required,max=200"`
	Role        models.MemberRole `json:"role" validate:"required,oneof=owner admin technician"`
}

func (e *Engine) RegisterMember(ctx context.Context, input RegisterMemberInput) (*models.Member, error) {
	if err := e.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if _, err := e.store.GetCompany(ctx, input.CompanyCode); err != nil {
		return nil, fmt.Errorf("company %s: %w", input.CompanyCode, err)
	}
	member := &models.Member{
		ID:          uuid.NewString(),
		CompanyCode: input.CompanyCode,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		Role:        input.Role,
	}
	if err := e.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListCallEvents returns the audit trail for a call, visible to any member
// of a tenant in the call's visibility set.
func (e *Engine) ListCallEvents(ctx context.Context, callID, memberID string) ([]models.CallEvent, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	call, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	visible, err := e.canSee(ctx, call, member.CompanyCode)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("%w: call %s is not visible to tenant %s",
			models.ErrNotAuthorized, callID, member.CompanyCode)
	}
	return e.store.ListCallEvents(ctx, callID)
}
