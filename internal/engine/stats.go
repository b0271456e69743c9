package engine

import (
	"context"
	"fmt"

	"dispatch/models"
)

// TenantStats counts a tenant's calls per status and totals the bonus paid
// on claimed ones. Open calls past their deadline count as expired even
// before the sweeper has moved them.
func (e *Engine) TenantStats(ctx context.Context, companyCode string) (*models.TenantStats, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: companyCode is required", models.ErrValidation)
	}
	if _, err := e.store.GetCompany(ctx, companyCode); err != nil {
		return nil, fmt.Errorf("company %s: %w", companyCode, err)
	}
	return e.store.TenantStats(ctx, companyCode, e.now())
}

// MarketplaceStats returns the rollup over calls shared into a
// marketplace: call count, aggregate estimated value and average response
// time of resolved claims.
func (e *Engine) MarketplaceStats(ctx context.Context, marketplaceID string) (*models.MarketplaceStats, error) {
	if _, err := e.store.GetMarketplace(ctx, marketplaceID); err != nil {
		return nil, err
	}
	return e.store.MarketplaceStats(ctx, marketplaceID)
}
