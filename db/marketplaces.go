package db

import (
	"context"

	"dispatch/models"
)

func (s *Storage) CreateMarketplace(ctx context.Context, m *models.Marketplace) error {
	query := `
        INSERT INTO marketplaces
            (id, name, owner_company_code, service_areas, radius_km,
             monthly_fee, min_reputation, auto_accept_bids, require_verification)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query,
		m.ID, m.Name, m.OwnerCompanyCode, m.ServiceAreas, m.RadiusKm,
		m.MonthlyFee, m.MinReputation, m.AutoAcceptBids, m.RequireVerification).
		Scan(&m.CreatedAt)
}

func (s *Storage) GetMarketplace(ctx context.Context, id string) (*models.Marketplace, error) {
	m := &models.Marketplace{}
	query := `SELECT * FROM marketplaces WHERE id=$1`
	if err := s.db.GetContext(ctx, m, query, id); err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (s *Storage) ListMarketplacesForTenant(ctx context.Context, companyCode string) ([]models.Marketplace, error) {
	marketplaces := []models.Marketplace{}
	query := `
        SELECT m.* FROM marketplaces m
        JOIN marketplace_members mm ON mm.marketplace_id = m.id
        WHERE mm.company_code = $1
        ORDER BY m.name ASC`
	err := s.db.SelectContext(ctx, &marketplaces, query, companyCode)
	return marketplaces, err
}

// AddMarketplaceMember is idempotent; joining twice is a no-op.
func (s *Storage) AddMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) error {
	query := `
        INSERT INTO marketplace_members (marketplace_id, company_code)
        VALUES ($1, $2)
        ON CONFLICT (marketplace_id, company_code) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, marketplaceID, companyCode)
	return err
}

func (s *Storage) RemoveMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) error {
	query := `DELETE FROM marketplace_members WHERE marketplace_id = $1 AND company_code = $2`
	_, err := s.db.ExecContext(ctx, query, marketplaceID, companyCode)
	return err
}

func (s *Storage) IsMarketplaceMember(ctx context.Context, marketplaceID, companyCode string) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM marketplace_members WHERE marketplace_id = $1 AND company_code = $2`
	if err := s.db.GetContext(ctx, &count, query, marketplaceID, companyCode); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ShareCall records a marketplace share additively. Re-sharing to the same
// marketplace is a no-op; sharing never changes the owning tenant.
func (s *Storage) ShareCall(ctx context.Context, callID, marketplaceID, sharedBy string) error {
	query := `
        INSERT INTO call_shares (call_id, marketplace_id, shared_by)
        VALUES ($1, $2, $3)
        ON CONFLICT (call_id, marketplace_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, callID, marketplaceID, sharedBy)
	return err
}

// MarketplaceStats aggregates over the calls shared into a marketplace.
// Response time averages only resolved claims.
func (s *Storage) MarketplaceStats(ctx context.Context, marketplaceID string) (*models.MarketplaceStats, error) {
	st := &models.MarketplaceStats{MarketplaceID: marketplaceID}
	query := `
        SELECT
            COUNT(*)                                 AS shared_calls,
            COALESCE(SUM(c.estimated_value), 0)      AS total_value,
            COALESCE(AVG(EXTRACT(EPOCH FROM (c.resolved_at - c.created_at)))
                     FILTER (WHERE c.status = 'claimed' AND c.resolved_at IS NOT NULL), 0)
                                                     AS avg_response_seconds
        FROM call_shares cs
        JOIN calls c ON c.id = cs.call_id
        WHERE cs.marketplace_id = $1`
	if err := s.db.GetContext(ctx, st, query, marketplaceID); err != nil {
		return nil, err
	}
	return st, nil
}
